package bidding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/floroz/gavel-client/internal/auction"
)

var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// Validate checks a candidate bid against the minimum next bid and returns it in cents.
// Amounts that are not finite, have fractions of a cent or fall below minimum are rejected.
func Validate(amount float64, minimum auction.Amount) (auction.Amount, error) {
	a, err := auction.AmountFromFloat(amount)
	if err != nil {
		return 0, err
	}
	if a < minimum {
		return 0, &auction.ValidationError{Reason: fmt.Sprintf("bid must be at least %s", minimum)}
	}
	return a, nil
}

// ParseAmount reads a decimal amount typed by the user. Commas are accepted
// only as thousands separators ("1,250.00").
func ParseAmount(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, &auction.ValidationError{Reason: "enter a bid amount"}
	}
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return 0, &auction.ValidationError{Reason: fmt.Sprintf("%q is not a valid amount", input)}
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &auction.ValidationError{Reason: fmt.Sprintf("%q is not a valid amount", input)}
	}
	return f, nil
}
