package qvf

import (
	"strings"
	"unicode"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// Name-token sets for semantic type inference. A column type is upgraded
// from string only on unambiguous evidence: a recognized name token or a
// typing function in the column's source expression.
var (
	integerTokens = map[string]bool{
		"id": true, "key": true, "qty": true, "quantity": true,
		"count": true, "year": true, "month": true, "week": true,
		"day": true, "age": true, "rank": true, "level": true,
		"number": true, "num": true, "seq": true,
	}
	decimalTokens = map[string]bool{
		"amount": true, "price": true, "cost": true, "total": true,
		"revenue": true, "sales": true, "profit": true, "margin": true,
		"rate": true, "pct": true, "percent": true, "value": true,
		"weight": true, "discount": true, "balance": true, "tax": true,
	}
	dateTokens = map[string]bool{
		"date": true, "dob": true,
	}
	dateTimeTokens = map[string]bool{
		"time": true, "timestamp": true, "datetime": true,
	}
	booleanTokens = map[string]bool{
		"flag": true, "active": true, "enabled": true, "deleted": true,
	}
)

// expression prefixes that carry a type signal, checked case-insensitively.
var expressionTypeHints = []struct {
	prefix string
	code   core.TypeCode
}{
	{"date#", core.TypeDate},
	{"makedate", core.TypeDate},
	{"daystart", core.TypeDate},
	{"monthstart", core.TypeDate},
	{"yearstart", core.TypeDate},
	{"timestamp#", core.TypeDateTime},
	{"timestamp(", core.TypeDateTime},
	{"now(", core.TypeDateTime},
	{"num#", core.TypeDecimal},
	{"num(", core.TypeDecimal},
	{"round(", core.TypeDecimal},
	{"money(", core.TypeDecimal},
	{"rowno(", core.TypeInteger},
	{"recno(", core.TypeInteger},
	{"autonumber", core.TypeInteger},
	{"floor(", core.TypeInteger},
	{"ceil(", core.TypeInteger},
	{"year(", core.TypeInteger},
	{"month(", core.TypeInteger},
	{"upper(", core.TypeString},
	{"lower(", core.TypeString},
	{"trim(", core.TypeString},
	{"text(", core.TypeString},
	{"if(", core.TypeString},
}

// InferType infers the semantic type of a column from its name and, when
// the column is derived, its source expression. The default is string;
// numeric/date upgrades happen only on unambiguous evidence.
func InferType(name, expression string) core.TypeCode {
	if expression != "" {
		lower := strings.ToLower(strings.TrimSpace(expression))
		for _, hint := range expressionTypeHints {
			if strings.HasPrefix(lower, hint.prefix) {
				return hint.code
			}
		}
	}

	tokens := splitNameTokens(name)
	if len(tokens) == 0 {
		return core.TypeString
	}

	// Leading is/has reads as a boolean predicate (IsActive, HasOrders).
	if len(tokens) > 1 && (tokens[0] == "is" || tokens[0] == "has") {
		return core.TypeBoolean
	}

	// The trailing token carries the strongest signal (OrderDate, UnitPrice).
	last := tokens[len(tokens)-1]
	switch {
	case dateTimeTokens[last]:
		return core.TypeDateTime
	case dateTokens[last]:
		return core.TypeDate
	case integerTokens[last]:
		return core.TypeInteger
	case decimalTokens[last]:
		return core.TypeDecimal
	case booleanTokens[last]:
		return core.TypeBoolean
	}

	return core.TypeString
}

// splitNameTokens lowercases and splits an identifier on underscores,
// spaces, and camelCase boundaries.
func splitNameTokens(name string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		switch {
		case r == '_' || r == ' ' || r == '-' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// Boundary before an upper rune following a lower rune, or an
			// upper rune followed by a lower rune (handles "OrderID" and
			// "IDNumber").
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				flush()
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return tokens
}
