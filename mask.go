package morph

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"unicode"

	"github.com/zoobzio/morph/instance"
)

// MaskType names a data format with masking rules.
type MaskType string

const (
	MaskSSN   MaskType = "ssn"   // 123-45-6789 -> ***-**-6789
	MaskEmail MaskType = "email" // alice@example.com -> a***@example.com
	MaskPhone MaskType = "phone" // (555) 123-4567 -> (***) ***-4567
	MaskCard  MaskType = "card"  // 4111111111111111 -> ************1111
	MaskIP    MaskType = "ip"    // 192.168.1.100 -> 192.168.xxx.xxx
	MaskUUID  MaskType = "uuid"  // 550e8400-e29b-41d4-a716-446655440000 -> 550e8400-****-****-****-************
	MaskIBAN  MaskType = "iban"  // GB82WEST12345698765432 -> GB82************5432
	MaskName  MaskType = "name"  // John Smith -> J*** S****
)

// Mask obscures part of a string or byte slice according to its format.
type Mask struct {
	Type MaskType
}

// Masker applies content-aware masking.
type Masker interface {
	Mask(value string) string
}

// MaskerFunc adapts a function into a Masker.
type MaskerFunc func(value string) string

// Mask implements Masker.
func (f MaskerFunc) Mask(value string) string { return f(value) }

func builtinMaskers() map[MaskType]Masker {
	return map[MaskType]Masker{
		MaskSSN:   MaskerFunc(maskSSN),
		MaskEmail: MaskerFunc(maskEmail),
		MaskPhone: MaskerFunc(maskPhone),
		MaskCard:  MaskerFunc(maskCard),
		MaskIP:    MaskerFunc(maskIP),
		MaskUUID:  MaskerFunc(maskUUID),
		MaskIBAN:  MaskerFunc(maskIBAN),
		MaskName:  MaskerFunc(maskName),
	}
}

func stars(n int) string { return strings.Repeat("*", n) }

// lastDigits returns the final n digits of s and the total digit count.
func lastDigits(s string, n int) (string, int) {
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < n {
		return "", len(digits)
	}
	return string(digits[len(digits)-n:]), len(digits)
}

func maskSSN(v string) string {
	last, _ := lastDigits(v, 4)
	if last == "" {
		return stars(len(v))
	}
	return "***-**-" + last
}

func maskEmail(v string) string {
	at := strings.LastIndexByte(v, '@')
	if at < 1 {
		return stars(len(v))
	}
	return v[:1] + "***" + v[at:]
}

func maskPhone(v string) string {
	last, total := lastDigits(v, 4)
	switch {
	case last == "":
		return stars(len(v))
	case total >= 10 && strings.HasPrefix(v, "("):
		return "(***) ***-" + last
	case total >= 10:
		return "***-***-" + last
	default:
		return "***-" + last
	}
}

func maskCard(v string) string {
	last, total := lastDigits(v, 4)
	if last == "" {
		return stars(len(v))
	}
	sep := ""
	switch {
	case strings.ContainsRune(v, ' '):
		sep = " "
	case strings.ContainsRune(v, '-'):
		sep = "-"
	}
	if sep == "" {
		return stars(total-4) + last
	}
	groups := make([]string, 0, (total-4+3)/4+1)
	for i := 0; i < (total-4+3)/4; i++ {
		groups = append(groups, "****")
	}
	return strings.Join(append(groups, last), sep)
}

// maskIP keeps the network half of an address: two octets of IPv4, four
// groups of IPv6.
func maskIP(v string) string {
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return stars(len(v))
	}
	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.xxx.xxx", b[0], b[1])
	}
	b := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x:%02x%02x:xxxx:xxxx:xxxx:xxxx",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7])
}

func maskUUID(v string) string {
	parts := strings.Split(v, "-")
	if len(parts) != 5 {
		return stars(len(v))
	}
	return parts[0] + "-****-****-****-************"
}

func maskIBAN(v string) string {
	if len(v) <= 8 {
		return stars(len(v))
	}
	return v[:4] + stars(len(v)-8) + v[len(v)-4:]
}

func maskName(v string) string {
	words := strings.Fields(v)
	for i, w := range words {
		r := []rune(w)
		words[i] = string(r[0]) + stars(len(r)-1)
	}
	return strings.Join(words, " ")
}

type maskHandler struct {
	instance.Singleton
}

func (*maskHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Mask)
	if !ok {
		return nil, mismatch("morph.Mask", annotation)
	}
	if m, ok := value.(Maskable); ok {
		return m.MaskWith(a.Type)
	}
	m, err := maskerFor(a.Type)
	if err != nil {
		return nil, err
	}
	return mapText(value, func(b []byte) ([]byte, error) {
		return []byte(m.Mask(string(b))), nil
	})
}
