package domain

// Canonical member field names. These are the values stored in a sheet's
// column mapping: header string -> field name.
const (
	FieldMembershipNumber = "membership_number"
	FieldArName           = "ar_name"
	FieldLatinName        = "latin_name"
	FieldWhatsapp         = "whatsapp"
	FieldEmail            = "email"
	FieldSex              = "sex"
	FieldBirthDate        = "birth_date"
	FieldCountry          = "country"
	FieldCity             = "city"
	FieldDistrict         = "district"
	FieldUniversity       = "university"
	FieldMajor            = "major"
	FieldGraduationYear   = "graduation_year"
	FieldBloodType        = "blood_type"
	FieldPassword         = "password"
	FieldPhone            = "phone"
)

// MemberFields lists every canonical field name.
var MemberFields = []string{
	FieldMembershipNumber,
	FieldArName,
	FieldLatinName,
	FieldWhatsapp,
	FieldEmail,
	FieldSex,
	FieldBirthDate,
	FieldCountry,
	FieldCity,
	FieldDistrict,
	FieldUniversity,
	FieldMajor,
	FieldGraduationYear,
	FieldBloodType,
	FieldPassword,
	FieldPhone,
}

// MemberRecord is the canonical representation of one member or applicant.
// MembershipNumber stays empty until the allocator assigns one.
type MemberRecord struct {
	MembershipNumber string `json:"membership_number"`
	ArName           string `json:"ar_name"`
	LatinName        string `json:"latin_name"`
	Whatsapp         string `json:"whatsapp"`
	Email            string `json:"email"`
	Sex              string `json:"sex"`
	BirthDate        string `json:"birth_date"`
	Country          string `json:"country"`
	City             string `json:"city"`
	District         string `json:"district"`
	University       string `json:"university"`
	Major            string `json:"major"`
	GraduationYear   string `json:"graduation_year"`
	BloodType        string `json:"blood_type"`
	Password         string `json:"password,omitempty"`
	Phone            string `json:"phone"`
}

// SetField assigns value to the named canonical field. Unknown field names
// are ignored so mappings can carry columns this record does not model.
func (m *MemberRecord) SetField(field, value string) {
	switch field {
	case FieldMembershipNumber:
		m.MembershipNumber = value
	case FieldArName:
		m.ArName = value
	case FieldLatinName:
		m.LatinName = value
	case FieldWhatsapp:
		m.Whatsapp = value
	case FieldEmail:
		m.Email = value
	case FieldSex:
		m.Sex = value
	case FieldBirthDate:
		m.BirthDate = value
	case FieldCountry:
		m.Country = value
	case FieldCity:
		m.City = value
	case FieldDistrict:
		m.District = value
	case FieldUniversity:
		m.University = value
	case FieldMajor:
		m.Major = value
	case FieldGraduationYear:
		m.GraduationYear = value
	case FieldBloodType:
		m.BloodType = value
	case FieldPassword:
		m.Password = value
	case FieldPhone:
		m.Phone = value
	}
}

// Field returns the value of the named canonical field, or "" for unknown
// field names.
func (m *MemberRecord) Field(field string) string {
	switch field {
	case FieldMembershipNumber:
		return m.MembershipNumber
	case FieldArName:
		return m.ArName
	case FieldLatinName:
		return m.LatinName
	case FieldWhatsapp:
		return m.Whatsapp
	case FieldEmail:
		return m.Email
	case FieldSex:
		return m.Sex
	case FieldBirthDate:
		return m.BirthDate
	case FieldCountry:
		return m.Country
	case FieldCity:
		return m.City
	case FieldDistrict:
		return m.District
	case FieldUniversity:
		return m.University
	case FieldMajor:
		return m.Major
	case FieldGraduationYear:
		return m.GraduationYear
	case FieldBloodType:
		return m.BloodType
	case FieldPassword:
		return m.Password
	case FieldPhone:
		return m.Phone
	default:
		return ""
	}
}

// ProvisionedAccount is a member's account in the external learning platform.
type ProvisionedAccount struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
