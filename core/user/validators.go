package user

import (
	"regexp"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khollendar/core"
)

const CodeLength = 6

var (
	secretCodeTag   = "secretcode"
	secretCodeText  = "the code must contain exactly 6 digits"
	secretCodeRegex = regexp.MustCompile(`^\d{6}$`)

	codeNotCommonTag  = "codenotcommon"
	codeNotCommonText = "this code is too easy to guess"
	commonCodes       = []string{ // repeated digits & straight sequences are detected by IsCommonCode
		"101010", "112233", "121212", "123123", "147258", "159753", "258369", "456123", "696969", "789456",
	}
)

func init() {
	sort.Strings(commonCodes)
}

// InitValidators registers the user validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(secretCodeTag, secretCodeValidation)
	core.RegisterCustomTranslation(validate, translator, secretCodeTag, secretCodeText)

	_ = validate.RegisterValidation(codeNotCommonTag, codeNotCommonValidation)
	core.RegisterCustomTranslation(validate, translator, codeNotCommonTag, codeNotCommonText)
}

// Custom Validators

// secretCodeValidation checks that the code is made of exactly 6 digits.
func secretCodeValidation(fl validator.FieldLevel) bool {
	return secretCodeRegex.MatchString(fl.Field().String())
}

// codeNotCommonValidation rejects repeated digits, straight sequences and well known codes.
func codeNotCommonValidation(fl validator.FieldLevel) bool {
	return !IsCommonCode(fl.Field().String())
}

func IsCommonCode(code string) bool {
	if idx := sort.SearchStrings(commonCodes, code); idx < len(commonCodes) && commonCodes[idx] == code {
		return true
	}
	if len(code) < 2 {
		return false
	}
	step := int(code[1]) - int(code[0])
	if step < -1 || step > 1 {
		return false
	}
	for i := 2; i < len(code); i++ {
		if int(code[i])-int(code[i-1]) != step {
			return false
		}
	}
	return true
}
