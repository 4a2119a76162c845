package reconciliation

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// purposeDateFormat is the single canonical date format tested for inside
// purpose text: zero-padded DD.MM.YYYY, the standard Russian bank-statement
// notation.
const purposeDateFormat = "02.01.2006"

// InvoiceNumberReferenced reports whether the invoice number occurs in the
// purpose text as a whole token: the occurrence must not be flanked by a
// letter or digit on either side. A raw substring hit is not enough, so
// invoice "102" never matches text containing "1020".
func InvoiceNumberReferenced(invoiceNumber, purpose string) bool {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" || purpose == "" {
		return false
	}

	for start := 0; start <= len(purpose)-len(invoiceNumber); {
		idx := strings.Index(purpose[start:], invoiceNumber)
		if idx < 0 {
			return false
		}
		idx += start

		if boundaryBefore(purpose, idx) && boundaryAfter(purpose, idx+len(invoiceNumber)) {
			return true
		}
		start = idx + 1
	}

	return false
}

// InvoiceDateReferenced reports whether the invoice's issue date, formatted
// as DD.MM.YYYY, appears literally in the purpose text. No alternate
// formats are attempted.
func InvoiceDateReferenced(issueDate time.Time, purpose string) bool {
	if issueDate.IsZero() || purpose == "" {
		return false
	}
	return strings.Contains(purpose, issueDate.Format(purposeDateFormat))
}

// boundaryBefore reports whether position idx starts a token: the string
// edge or a preceding rune that is neither letter nor digit.
func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// boundaryAfter reports whether position idx ends a token.
func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
