package campaign

import (
	"fmt"
	"strings"

	"github.com/evotools/evo-dispatch/internal/domain"
)

// The free-text column operators conventionally fill with a per-contact
// message. Exported CSVs quote it, but hand-edited files often do not; see
// requoteMessageColumn.
const messageColumn = "mensagem"

// splitCSVLine splits one CSV line on commas, honoring double quotes around
// fields. Quote characters toggle state and are not emitted; fields are
// trimmed. This is deliberately not a full CSV implementation: embedded
// escaped quotes are out of contract.
func splitCSVLine(line string) []string {
	var result []string
	var current strings.Builder
	insideQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			insideQuotes = !insideQuotes
		case ch == ',' && !insideQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}

	result = append(result, strings.TrimSpace(current.String()))
	return result
}

// requoteMessageColumn is a best-effort normalization pass for malformed
// input: when the message column was not quoted by whoever produced the file,
// everything from that column's position to end of line is wrapped in quotes
// so embedded commas survive the main parse. Only the trailing free-text
// column is fixed; nothing else is guessed at.
func requoteMessageColumn(lines []string, msgIndex int) []string {
	fixed := make([]string, 0, len(lines))
	fixed = append(fixed, lines[0])

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) <= msgIndex+1 {
			fixed = append(fixed, line)
			continue
		}

		head := strings.Join(parts[:msgIndex], ",")
		tail := strings.Join(parts[msgIndex:], ",")

		if !strings.HasPrefix(tail, `"`) && !strings.HasSuffix(tail, `"`) {
			tail = `"` + tail + `"`
		}

		fixed = append(fixed, head+","+tail)
	}

	return fixed
}

// ParseContacts turns a raw CSV document into contact records. The first line
// must be a header row containing a "number" column; data rows with a missing
// number get an empty string (validation is deferred to the sender). Blank
// lines are skipped.
func ParseContacts(csvText string) ([]domain.Contact, error) {
	lines := strings.Split(csvText, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("csv is empty")
	}

	headers := splitCSVLine(lines[0])

	msgIndex := -1
	for i, h := range headers {
		if h == messageColumn {
			msgIndex = i
			break
		}
	}

	if msgIndex != -1 {
		lines = requoteMessageColumn(lines, msgIndex)
	}

	hasNumber := false
	for _, h := range headers {
		if h == "number" {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return nil, fmt.Errorf("csv must have a 'number' column")
	}

	var contacts []domain.Contact
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := splitCSVLine(line)
		contact := make(domain.Contact, len(headers))

		for i, header := range headers {
			value := ""
			if i < len(values) {
				value = values[i]
			}
			// Strip one surrounding quote pair if the splitter left it.
			if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) && len(value) >= 2 {
				value = value[1 : len(value)-1]
			}
			contact[header] = value
		}

		if _, ok := contact["number"]; !ok {
			contact["number"] = ""
		}

		contacts = append(contacts, contact)
	}

	return contacts, nil
}

// Template returns the canonical import CSV: the expected header row plus two
// sample contacts showing quoted messages, {field} placeholders and the n/
// newline convention.
func Template() string {
	return "number,nome,data,valor,mensagem\n" +
		`5511999999999,João,01/05/2024,R$ 100;00,"Olá {nome}, seu pagamento de *{valor}* vence em {data}.n/n/Entre em contato para _regularizar_ sua situação."` + "\n" +
		`5511999999991,Maria,02/05/2024,R$ 150;00,"*AVISO IMPORTANTE*n/n/Prezada {nome}, seu pagamento no valor de {valor} vence em {data}.n/Favor desconsiderar se já efetuou."`
}
