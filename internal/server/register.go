package server

import (
	"campusstay/pkg/types"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type registerForm struct {
	GivenName       string `form:"given_name" validate:"required"`
	FamilyName      string `form:"family_name" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
}

func (f *registerForm) trim() {
	f.GivenName = strings.TrimSpace(f.GivenName)
	f.FamilyName = strings.TrimSpace(f.FamilyName)
	f.Email = strings.TrimSpace(f.Email)
}

var registerFieldMessages = map[string]string{
	"GivenName":       "First name is required.",
	"FamilyName":      "Last name is required.",
	"Email":           "Enter a valid email address.",
	"ConfirmPassword": "Passwords do not match.",
}

var registerFieldNames = map[string]string{
	"GivenName":       "given_name",
	"FamilyName":      "family_name",
	"Email":           "email",
	"Password":        "password",
	"ConfirmPassword": "confirm_password",
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
)

const passwordRules = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."

func validateRegisterForm(f *registerForm) map[string]string {
	errs := map[string]string{}

	var verrs validator.ValidationErrors
	if err := validate.Struct(f); errors.As(err, &verrs) {
		for _, fe := range verrs {
			name := registerFieldNames[fe.StructField()]
			if msg, ok := registerFieldMessages[fe.StructField()]; ok {
				errs[name] = msg
			}
		}
	}

	p := f.Password
	if len(p) < 12 || !hasUpperReg.MatchString(p) || !hasLowerReg.MatchString(p) || !hasDigitReg.MatchString(p) || !hasSymbolReg.MatchString(p) {
		errs["password"] = passwordRules
	}

	return errs
}

func (s *Service) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	if _, err := s.userFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	data := &types.RegisterPageData{
		BasePageData: types.BasePageData{Title: "Create Account"},
	}

	err := s.renderTemplate(w, r, "page.register", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render register page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.logger.WithError(err).Error("failed to parse register form")
		s.internalServerError(w)
		return
	}

	var in registerForm
	if err := decoder.Decode(&in, r.PostForm); err != nil {
		s.logger.WithError(err).Error("failed to decode register form")
		s.internalServerError(w)
		return
	}
	in.trim()

	data := &types.RegisterPageData{
		BasePageData: types.BasePageData{Title: "Create Account"},
		GivenName:    in.GivenName,
		FamilyName:   in.FamilyName,
		Email:        in.Email,
	}

	data.FieldErrors = validateRegisterForm(&in)
	if len(data.FieldErrors) > 0 {
		s.logger.WithField("field_errors", data.FieldErrors).Info("validation errors during registration")

		data.Error = "Please fix the highlighted fields."
		s.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(in.Email),
		Password: aws.String(in.Password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(in.Email)},
			{Name: aws.String("given_name"), Value: aws.String(in.GivenName)},
			{Name: aws.String("family_name"), Value: aws.String(in.FamilyName)},
		},
	}

	out, err := s.cognitoClient.SignUp(ctx, input)
	if err != nil {
		data.Error, data.FieldErrors = s.mapCognitoSignUpError(err)
		s.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	// Record the profile now so the name is known before the first login.
	if out != nil && out.UserSub != nil {
		err = s.users.UpsertIdentity(ctx, aws.ToString(out.UserSub), in.Email, in.GivenName, in.FamilyName)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", aws.ToString(out.UserSub)).Error("failed to store registered user profile")
		}
	}

	v := url.Values{}
	v.Set("email", in.Email)

	http.Redirect(w, r, "/register/confirm?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) renderRegister(w http.ResponseWriter, r *http.Request, status int, data *types.RegisterPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderTemplate(w, r, "page.register", data); err != nil {
		s.logger.WithError(err).Error("failed to render register page with errors")
	}
}

func (s *Service) handleGetRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm Your Account"},
		Email:        strings.TrimSpace(r.URL.Query().Get("email")),
	}

	err := s.renderTemplate(w, r, "page.register.confirm", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render register confirm page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm Your Account"},
		Email:        email,
	}

	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	}

	_, err := s.cognitoClient.ConfirmSignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm user signup")

		var codeMismatch *ctypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			data.Error = "Invalid confirmation code. Please check the code and try again."
		} else {
			data.Error = "Unable to confirm account. Please try again."
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		if err := s.renderTemplate(w, r, "page.register.confirm", data); err != nil {
			s.logger.WithError(err).Error("failed to render register confirm page with error")
		}
		return
	}

	http.Redirect(w, r, "/login?confirmed=true", http.StatusSeeOther)
}

func (s *Service) mapCognitoSignUpError(err error) (string, map[string]string) {
	fieldErrs := map[string]string{}

	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		fieldErrs["password"] = passwordRules
		return "Please fix the highlighted fields.", fieldErrs
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		fieldErrs["email"] = "An account with this email already exists."
		return "Try logging in instead.", fieldErrs
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return "Unable to create account right now. Please try again.", fieldErrs
}
