package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/pkg/logger"
)

const fallbackName = "Cliente"

// contactLookup is the slice of the gateway client the renderer needs.
type contactLookup interface {
	FetchContact(ctx context.Context, instance, number string) (*domain.ContactInfo, error)
}

// Renderer resolves message templates against contact records. Dates and
// greetings use the configured business timezone (São Paulo by default).
type Renderer struct {
	lookup   contactLookup
	location *time.Location
	nowFn    func() time.Time
}

// NewRenderer builds a renderer. lookup may be nil, in which case the
// {{nome}} variable falls back to the contact's CSV name without a gateway
// round trip (used for previews).
func NewRenderer(lookup contactLookup, timezone string) (*Renderer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		lookup:   lookup,
		location: loc,
		nowFn:    time.Now,
	}, nil
}

// Greeting returns the salutation for the given local hour.
func Greeting(hour int) string {
	switch {
	case hour >= 12 && hour < 18:
		return "Boa tarde"
	case hour >= 18:
		return "Boa noite"
	default:
		return "Bom dia"
	}
}

// Render produces the final message body for one contact.
//
// Substitution order is significant and fixed:
//  1. an imported contact's non-empty mensagem field replaces the template
//     entirely;
//  2. every {key} placeholder is replaced with the contact's field of that
//     name;
//  3. the fixed {{nome}} {{telefone}} {{data}} {{empresa}} {{saudacao}}
//     variables are resolved;
//  4. the literal sequence n/ becomes a newline. WhatsApp *bold* and _italic_
//     markers pass through untouched.
func (r *Renderer) Render(ctx context.Context, template string, contact domain.Contact, instance string, imported bool) string {
	processed := template
	if imported && strings.TrimSpace(contact[messageColumn]) != "" {
		processed = contact[messageColumn]
	}

	// Mask the fixed variables before the contact-field pass: a contact
	// column named like a fixed variable (nome, data) must not eat the inner
	// braces of its {{...}} form.
	for _, name := range fixedVariables {
		processed = strings.ReplaceAll(processed, "{{"+name+"}}", maskToken(name))
	}

	for key, value := range contact {
		processed = strings.ReplaceAll(processed, "{"+key+"}", value)
	}

	now := r.nowFn().In(r.location)
	today := now.Format("02/01/2006")
	saudacao := Greeting(now.Hour())

	pushname := fallbackName
	if nome := contact["nome"]; nome != "" {
		pushname = nome
	}
	if r.lookup != nil {
		info, err := r.lookup.FetchContact(ctx, instance, contact.Number())
		if err != nil {
			// Lookup failures must never abort message construction.
			logger.Warnf("Contact lookup failed for %s: %v", contact.Number(), err)
		} else if info != nil && info.PushName != "" {
			pushname = info.PushName
		}
	}

	variables := [][2]string{
		{maskToken("nome"), pushname},
		{maskToken("telefone"), contact.Number()},
		{maskToken("data"), today},
		{maskToken("empresa"), instance},
		{maskToken("saudacao"), saudacao},
	}
	for _, v := range variables {
		processed = strings.ReplaceAll(processed, v[0], v[1])
	}

	return strings.ReplaceAll(processed, "n/", "\n")
}

var fixedVariables = []string{"nome", "telefone", "data", "empresa", "saudacao"}

// maskToken builds a stand-in for a fixed {{name}} variable. NUL delimiters
// cannot appear in template or CSV input, so masked tokens survive the
// contact-field pass untouched.
func maskToken(name string) string {
	return "\x00" + name + "\x00"
}

// FormatScheduled renders an instant the way operators expect to read it:
// dd/MM/yyyy HH:mm in the business timezone.
func (r *Renderer) FormatScheduled(t time.Time) string {
	return t.In(r.location).Format("02/01/2006 15:04")
}
