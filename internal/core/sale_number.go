package core

import (
	"fmt"
	"strconv"
	"strings"
)

const documentNumberDigits = 6

// NextDocumentNumber returns the number following highest for the given prefix.
// When highest is empty or does not parse, it falls back to count+1.
func NextDocumentNumber(prefix, highest string, count int) string {
	next := count + 1
	if n, ok := parseDocumentNumber(prefix, highest); ok {
		next = n + 1
	}
	return fmt.Sprintf("%s%0*d", prefix, documentNumberDigits, next)
}

// NextSaleNumber allocates the next SAL-NNNNNN number.
func NextSaleNumber(highest string, count int) string {
	return NextDocumentNumber(SaleNumberPrefix, highest, count)
}

// NextOrderNumber allocates the next ORD-NNNNNN number.
func NextOrderNumber(highest string, count int) string {
	return NextDocumentNumber(OrderNumberPrefix, highest, count)
}

func parseDocumentNumber(prefix, s string) (int, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// IsDealerSaleNumber reports whether number came from the dealer invoice flow.
func IsDealerSaleNumber(number string) bool {
	return strings.HasPrefix(number, SaleNumberPrefix)
}
