package intake

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/shelfscan-backend/internal/domain"
)

var trailingQuantity = regexp.MustCompile(`\s+(\d+)$`)

// ParseShelfText turns raw OCR text into line items. Each non-blank line is
// one product; a whitespace-separated run of digits at the end of the line is
// its quantity, otherwise the quantity is 0. Lines that leave no name are
// dropped.
func ParseShelfText(text string) []domain.LineItem {
	items := make([]domain.LineItem, 0)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		name, qty := line, 0
		if m := trailingQuantity.FindStringSubmatchIndex(line); m != nil {
			// A number too large for int stays part of the name.
			if n, err := strconv.Atoi(line[m[2]:m[3]]); err == nil {
				name = strings.TrimSpace(line[:m[0]])
				qty = n
			}
		}
		if name == "" {
			continue
		}
		items = append(items, domain.LineItem{Name: name, Quantity: qty})
	}
	return items
}
