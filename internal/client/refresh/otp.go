package refresh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/go-playground/validator/v10"
)

// OTPLength is the number of digits in a Telecel OTP.
const OTPLength = 6

// ErrInvalidOTPFormat means the code is not exactly six digits. It is
// reported before anything is sent.
var ErrInvalidOTPFormat = fmt.Errorf("%w: otp must be exactly %d digits", common.ErrInvalidInput, OTPLength)

var validate = validator.New(validator.WithRequiredStructEnabled())

type otpInput struct {
	Code string `validate:"required,len=6,number"`
}

// FilterOTP keeps ASCII digits only and truncates to OTPLength, the way the
// input field treats keystrokes.
func FilterOTP(input string) string {
	var b strings.Builder
	for _, r := range input {
		if b.Len() == OTPLength {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateOTP checks an already filtered code.
func ValidateOTP(code string) error {
	err := validate.Struct(otpInput{Code: code})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return ErrInvalidOTPFormat
	}
	return err
}
