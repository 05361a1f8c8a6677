package verification

import (
	"campusstay/pkg/types"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateDetails trims details in place and reports missing or oversized
// fields keyed by form field name.
func (s *Service) validateDetails(details *types.StudentDetails) error {
	details.Trim()

	err := s.validate.Struct(details)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate student details: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}

	return types.NewValidationError(types.ErrMissingFields, fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	default:
		return "This field is invalid"
	}
}

type checkedDocument struct {
	kind      types.DocumentKind
	fileName  string
	mimeType  string
	extension string
	content   []byte
}

// checkDocuments requires one upload per kind, then checks size and the
// sniffed content type of each.
func checkDocuments(input *types.ManualVerificationInput) ([]checkedDocument, error) {
	missing := make(map[string]string)
	for _, kind := range types.RequiredDocumentKinds {
		if input.Upload(kind).Empty() {
			missing[string(kind)] = fmt.Sprintf("Please upload your %s", strings.ToLower(kind.Label()))
		}
	}
	if len(missing) > 0 {
		return nil, types.NewValidationError(types.ErrMissingDocuments, missing)
	}

	invalid := make(map[string]string)
	checked := make([]checkedDocument, 0, len(types.RequiredDocumentKinds))
	for _, kind := range types.RequiredDocumentKinds {
		upload := input.Upload(kind)

		if int64(len(upload.Content)) > types.MaxDocumentSizeBytes {
			invalid[string(kind)] = fmt.Sprintf("%s must be %d MB or smaller", kind.Label(), types.MaxDocumentSizeBytes>>20)
			continue
		}

		mimeType, extension, ok := sniff(upload.Content)
		if !ok {
			invalid[string(kind)] = fmt.Sprintf("%s must be a JPEG, PNG, WebP or PDF file", kind.Label())
			continue
		}

		checked = append(checked, checkedDocument{
			kind:      kind,
			fileName:  cleanFileName(upload.FileName, kind, extension),
			mimeType:  mimeType,
			extension: extension,
			content:   upload.Content,
		})
	}
	if len(invalid) > 0 {
		return nil, types.NewValidationError(types.ErrInvalidDocument, invalid)
	}

	return checked, nil
}

func sniff(content []byte) (string, string, bool) {
	detected := mimetype.Detect(content)
	for mimeType, extension := range types.AllowedDocumentMimeTypes {
		if detected.Is(mimeType) {
			return mimeType, extension, true
		}
	}
	return "", "", false
}

func cleanFileName(name string, kind types.DocumentKind, extension string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return string(kind) + extension
	}
	return name
}
