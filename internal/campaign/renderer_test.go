package campaign

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/evotools/evo-dispatch/internal/domain"
)

type fakeLookup struct {
	pushName    string
	errToReturn error

	calls []string
}

func (f *fakeLookup) FetchContact(ctx context.Context, instance, number string) (*domain.ContactInfo, error) {
	f.calls = append(f.calls, number)
	if f.errToReturn != nil {
		return nil, f.errToReturn
	}
	return &domain.ContactInfo{PushName: f.pushName, Number: number}, nil
}

func newTestRenderer(t *testing.T, lookup contactLookup, at time.Time) *Renderer {
	t.Helper()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	return &Renderer{
		lookup:   lookup,
		location: loc,
		nowFn:    func() time.Time { return at },
	}
}

func TestRender_FallbackNameAndDate(t *testing.T) {
	// 10:30 local time in São Paulo (UTC-3) on 2025-03-15.
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)

	lookup := &fakeLookup{errToReturn: fmt.Errorf("gateway unreachable")}
	r := newTestRenderer(t, lookup, at)

	contact := domain.Contact{"number": "5511999999999"}
	out := r.Render(context.Background(), "Olá {{nome}}, hoje é {{data}}", contact, "minha-loja", false)

	if !strings.HasPrefix(out, "Olá Cliente, hoje é ") {
		t.Fatalf("expected fallback name prefix, got %q", out)
	}
	if !strings.HasSuffix(out, "15/03/2025") {
		t.Fatalf("expected dd/MM/yyyy date suffix, got %q", out)
	}
}

func TestRender_LookupFailureUsesCSVName(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)

	lookup := &fakeLookup{errToReturn: fmt.Errorf("timeout")}
	r := newTestRenderer(t, lookup, at)

	contact := domain.Contact{"number": "5511999999999", "nome": "João"}
	out := r.Render(context.Background(), "{{nome}}", contact, "loja", false)

	if out != "João" {
		t.Fatalf("expected CSV name fallback João, got %q", out)
	}
}

func TestRender_PushNameFromGateway(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)

	lookup := &fakeLookup{pushName: "Maria Clara"}
	r := newTestRenderer(t, lookup, at)

	contact := domain.Contact{"number": "5511988887777", "nome": "Maria"}
	out := r.Render(context.Background(), "Oi {{nome}}", contact, "loja", false)

	if out != "Oi Maria Clara" {
		t.Fatalf("expected gateway push name, got %q", out)
	}
	if len(lookup.calls) != 1 || lookup.calls[0] != "5511988887777" {
		t.Fatalf("expected one lookup for the contact number, got %#v", lookup.calls)
	}
}

func TestRender_NewlineConventionAndMarkdown(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)
	r := newTestRenderer(t, nil, at)

	contact := domain.Contact{"number": "5511999999999"}
	out := r.Render(context.Background(), "Linha1n/Linha2 *negrito* _itálico_", contact, "loja", false)

	want := "Linha1\nLinha2 *negrito* _itálico_"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRender_ContactFieldDoesNotEatFixedVariable(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)
	r := newTestRenderer(t, nil, at)

	// A CSV column named like a fixed variable must not swallow the inner
	// braces of the {{...}} form.
	contact := domain.Contact{"number": "5511999999999", "nome": "João"}
	out := r.Render(context.Background(), "Olá {{nome}}", contact, "loja", false)

	if out != "Olá João" {
		t.Fatalf("expected fixed variable resolution, got %q", out)
	}

	// The single-brace form still resolves to the raw contact field.
	out = r.Render(context.Background(), "Olá {nome} e {{nome}}", contact, "loja", false)
	if out != "Olá João e João" {
		t.Fatalf("expected both brace forms resolved, got %q", out)
	}

	// Same collision for a contact data column versus {{data}}.
	contact = domain.Contact{"number": "5511999999999", "data": "01/05/2024"}
	out = r.Render(context.Background(), "Vence {data}, hoje {{data}}", contact, "loja", false)
	if out != "Vence 01/05/2024, hoje 15/03/2025" {
		t.Fatalf("expected contact data and today's date, got %q", out)
	}
}

func TestRender_ContactFieldsBeforeFixedVariables(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)
	r := newTestRenderer(t, nil, at)

	contact := domain.Contact{
		"number": "5511999999999",
		"valor":  "R$ 100,00",
		"data":   "01/05/2024",
	}
	out := r.Render(context.Background(), "Pague {valor} até {data}. Tel: {{telefone}}", contact, "loja", false)

	want := "Pague R$ 100,00 até 01/05/2024. Tel: 5511999999999"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRender_ImportedMessageOverridesTemplate(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)
	r := newTestRenderer(t, nil, at)

	contact := domain.Contact{
		"number":   "5511999999999",
		"mensagem": "Mensagem própria de {nome}",
		"nome":     "Ana",
	}

	out := r.Render(context.Background(), "Template global ignorado", contact, "loja", true)
	if out != "Mensagem própria de Ana" {
		t.Fatalf("expected per-contact message override, got %q", out)
	}

	// Outside imported mode the global template wins.
	out = r.Render(context.Background(), "Template global", contact, "loja", false)
	if out != "Template global" {
		t.Fatalf("expected global template, got %q", out)
	}
}

func TestRender_CompanyVariable(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 30, 0, 0, time.UTC)
	r := newTestRenderer(t, nil, at)

	contact := domain.Contact{"number": "5511999999999"}
	out := r.Render(context.Background(), "Atenciosamente, {{empresa}}", contact, "minha-loja", false)

	if out != "Atenciosamente, minha-loja" {
		t.Fatalf("expected instance name substitution, got %q", out)
	}
}

func TestGreeting_HourBoundaries(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, "Bom dia"},
		{11, "Bom dia"},
		{12, "Boa tarde"},
		{17, "Boa tarde"},
		{18, "Boa noite"},
		{23, "Boa noite"},
	}

	for _, tc := range cases {
		if got := Greeting(tc.hour); got != tc.want {
			t.Errorf("Greeting(%d) = %q, want %q", tc.hour, got, tc.want)
		}
	}
}

func TestRender_GreetingUsesLocalHour(t *testing.T) {
	// 21:00 UTC is 18:00 in São Paulo: evening greeting.
	at := time.Date(2025, 3, 15, 21, 0, 0, 0, time.UTC)
	r := newTestRenderer(t, nil, at)

	contact := domain.Contact{"number": "5511999999999"}
	out := r.Render(context.Background(), "{{saudacao}}!", contact, "loja", false)

	if out != "Boa noite!" {
		t.Fatalf("expected Boa noite, got %q", out)
	}
}
