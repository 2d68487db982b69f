package scenario

import (
	"strings"

	"myloop/internal/models"
)

// fallbackName stands in for contacts that never set a display name.
const fallbackName = "Customer"

// Render substitutes {{name}} and {{email}} placeholders with contact
// fields. Unrecognized placeholders are left verbatim.
func Render(body string, contact *models.Contact) string {
	name := contact.Name
	if name == "" {
		name = fallbackName
	}
	out := strings.ReplaceAll(body, "{{name}}", name)
	out = strings.ReplaceAll(out, "{{email}}", contact.Email)
	return out
}
