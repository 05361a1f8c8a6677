package types

type NavbarData struct {
	IsAuthenticated bool
	IsAdmin         bool
	UserID          string
	UserEmail       string
	UserName        string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

type BasePageData struct {
	Title  string
	Navbar NavbarData
	Notice string
	Error  string
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

type HomePageData struct {
	BasePageData
}

type LoginPageData struct {
	BasePageData
	Message string
	Email   string
}

type RegisterPageData struct {
	BasePageData
	GivenName   string
	FamilyName  string
	Email       string
	FieldErrors map[string]string
}

type ConfirmRegisterPageData struct {
	BasePageData
	Email   string
	Message string
}

type DocumentRequirement struct {
	Kind  DocumentKind
	Label string
	Field string
}

type VerificationFormPageData struct {
	BasePageData
	Details           StudentDetails
	FieldErrors       map[string]string
	Documents         []DocumentRequirement
	AcceptedTypes     string
	MaxDocumentSizeMB int64
	ExistingStatus    VerificationStatus
	HasPendingRecord  bool
	CanSubmit         bool
	InstantUniversity string
	StudentVerified   bool
}

type ProfilePageData struct {
	BasePageData
	UserID          string
	UserEmail       string
	WelcomeName     string
	IsAdmin         bool
	StudentVerified bool
	SheerIDVerified bool
	HasVerification bool
	Verification    *VerificationRecord
	Status          VerificationStatus
	StatusLabel     string
	SubmittedAt     string
	ReviewedAt      string
	ReviewNotes     string
	CanSubmit       bool
}

type ReviewQueueRow struct {
	UserID          string
	SubjectName     string
	SubjectEmail    string
	UniversityName  string
	StudentIDNumber string
	GraduationYear  string
	Major           string
	Status          VerificationStatus
	StatusLabel     string
	SubmittedAt     string
	ReviewedAt      string
	ReviewNotes     string
	Documents       []ReviewQueueDocument
	IsPending       bool
}

type ReviewQueueDocument struct {
	Kind     DocumentKind
	Label    string
	FileName string
	Href     string
}

type ReviewQueueFilterTab struct {
	Label  string
	Value  VerificationFilter
	Href   string
	Active bool
}

type ReviewQueuePageData struct {
	BasePageData
	Filter VerificationFilter
	Tabs   []ReviewQueueFilterTab
	Rows   []ReviewQueueRow
	Empty  bool
}
