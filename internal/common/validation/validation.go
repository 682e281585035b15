package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
)

const (
	MaxDescriptionLength = 1000
	MaxSlugLength        = 64
)

// Raw TON address: workchain 0 and 32 bytes of hex.
var tonRawAddressRegex = regexp.MustCompile(`^0:[0-9a-fA-F]{64}$`)

var slugRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the custom tags registered:
//
//	tonraw - string is a raw TON address ("0:" + 64 hex)
//	finite - float is neither NaN nor ±Inf
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		Register(validate)
	})
	return validate
}

// Register adds the custom tags to v. The sandbox uses it on gin's binding engine.
func Register(v *validator.Validate) {
	// Ошибки называют поля так же, как они называются в JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("tonraw", func(fl validator.FieldLevel) bool {
		return IsRawTONAddress(fl.Field().String())
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// Struct validates s against its `validate` tags.
func Struct(s interface{}) error {
	return Validator().Struct(s)
}

// FirstError returns the JSON name and failed tag of the first field error in err.
func FirstError(err error) (field, tag string, ok bool) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "", "", false
	}
	return errs[0].Field(), errs[0].Tag(), true
}

func IsRawTONAddress(addr string) bool {
	return tonRawAddressRegex.MatchString(addr)
}

// FriendlyAddress converts a raw address to the bounceable user-friendly form.
// Anything that is not a raw address is returned unchanged.
func FriendlyAddress(raw string) string {
	if !IsRawTONAddress(raw) {
		return raw
	}
	addr, err := address.ParseRawAddr(raw)
	if err != nil {
		return raw
	}
	return addr.String()
}

// RawAddress converts a user-friendly address to the raw "0:<hex>" form.
func RawAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if IsRawTONAddress(addr) {
		return strings.ToLower(addr), nil
	}
	parsed, err := address.ParseAddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid TON address %q: %w", addr, err)
	}
	return parsed.StringRaw(), nil
}

// FormatTON renders a TON amount the way wallets show it ("1.5 TON"). Digits past
// nanoton precision are dropped.
func FormatTON(amount float64) string {
	decimal := strconv.FormatFloat(amount, 'f', -1, 64)
	coins, err := tlb.FromTON(decimal)
	if err != nil {
		return decimal + " TON"
	}
	return coins.String() + " TON"
}

func ValidateDescription(description string) error {
	if len(strings.TrimSpace(description)) > MaxDescriptionLength {
		return fmt.Errorf("description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(slug) > MaxSlugLength {
		return fmt.Errorf("slug cannot exceed %d characters", MaxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must contain only letters, numbers, dashes and underscores")
	}
	return nil
}
