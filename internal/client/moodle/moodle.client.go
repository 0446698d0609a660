package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"
)

// Client provisions member accounts in the Moodle learning platform through
// its webservice REST API.
type Client struct {
	apiURL string
	token  string
	http   *http.Client
}

func New(apiURL, token string) *Client {
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// FindByEmail looks up an account by email. Returns (nil, nil) when no
// account exists.
func (c *Client) FindByEmail(ctx context.Context, email string) (*domain.ProvisionedAccount, error) {
	return c.findByField(ctx, "email", email)
}

// FindByUsername looks up an account by username, which carries the
// membership number for accounts this system created.
func (c *Client) FindByUsername(ctx context.Context, username string) (*domain.ProvisionedAccount, error) {
	return c.findByField(ctx, "username", username)
}

func (c *Client) findByField(ctx context.Context, field, value string) (*domain.ProvisionedAccount, error) {
	params := url.Values{}
	params.Set("field", field)
	params.Set("values[0]", value)

	raw, err := c.call(ctx, "core_user_get_users_by_field", params)
	if err != nil {
		return nil, err
	}

	var users []struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, &xerrors.ProvisioningError{Msg: fmt.Sprintf("decoding user lookup: %v", err), Transport: true}
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &domain.ProvisionedAccount{
		ID:       users[0].ID,
		Username: users[0].Username,
		Email:    users[0].Email,
	}, nil
}

// Create provisions a new account for the member and returns the platform
// account ID. The membership number doubles as username and idnumber.
func (c *Client) Create(ctx context.Context, m domain.MemberRecord) (int, error) {
	params := url.Values{}
	user := map[string]string{
		"username":     m.MembershipNumber,
		"password":     m.Password,
		"firstname":    m.ArName,
		"lastname":     m.LatinName,
		"email":        m.Email,
		"city":         m.City,
		"country":      countryCode(m.Country),
		"phone1":       m.Phone,
		"phone2":       m.Whatsapp,
		"auth":         "manual",
		"maildisplay":  "1",
		"timezone":     "99",
		"institution":  m.University,
		"department":   m.Major,
		"lang":         "en",
		"calendartype": "gregorian",
		"idnumber":     m.MembershipNumber,
	}
	if m.District != "" {
		user["address"] = fmt.Sprintf("%s, %s, %s", m.District, m.City, m.Country)
	} else {
		user["address"] = fmt.Sprintf("%s, %s", m.City, m.Country)
	}
	for k, v := range user {
		params.Set(fmt.Sprintf("users[0][%s]", k), v)
	}

	raw, err := c.call(ctx, "core_user_create_users", params)
	if err != nil {
		return 0, err
	}

	var created []struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return 0, &xerrors.ProvisioningError{Msg: fmt.Sprintf("decoding create response: %v", err), Transport: true}
	}
	if len(created) == 0 {
		return 0, &xerrors.ProvisioningError{Code: "nouser", Msg: "no user ID returned"}
	}
	return created[0].ID, nil
}

// UpdateCredential replaces the password of an existing account.
func (c *Client) UpdateCredential(ctx context.Context, accountID int, newPassword string) error {
	params := url.Values{}
	params.Set("users[0][id]", strconv.Itoa(accountID))
	params.Set("users[0][password]", newPassword)

	_, err := c.call(ctx, "core_user_update_users", params)
	return err
}

// Delete removes an account from the platform.
func (c *Client) Delete(ctx context.Context, accountID int) error {
	params := url.Values{}
	params.Set("userids[0]", strconv.Itoa(accountID))
	_, err := c.call(ctx, "core_user_delete_users", params)
	return err
}

func (c *Client) call(ctx context.Context, wsfunction string, params url.Values) (json.RawMessage, error) {
	params.Set("wstoken", c.token)
	params.Set("wsfunction", wsfunction)
	params.Set("moodlewsrestformat", "json")

	endpoint := c.apiURL + "/webservice/rest/server.php?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, &xerrors.ProvisioningError{Msg: err.Error(), Transport: true}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &xerrors.ProvisioningError{Msg: fmt.Sprintf("%s: %v", wsfunction, err), Transport: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &xerrors.ProvisioningError{Msg: fmt.Sprintf("%s returned %d", wsfunction, resp.StatusCode), Transport: true}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &xerrors.ProvisioningError{Msg: err.Error(), Transport: true}
	}

	// Moodle reports webservice failures as a JSON object even when the
	// normal response is an array.
	var wsErr struct {
		Exception string `json:"exception"`
		ErrorCode string `json:"errorcode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &wsErr); err == nil && wsErr.Exception != "" {
		return nil, &xerrors.ProvisioningError{Code: wsErr.ErrorCode, Msg: wsErr.Message}
	}

	return body, nil
}

// countryCode converts a country name to a two-letter ISO code the platform
// accepts, defaulting to TR.
func countryCode(name string) string {
	if name == "" {
		return "TR"
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "israel" {
		return "PS"
	}
	if code, ok := countryCodes[normalized]; ok {
		return code
	}
	return "TR"
}

var countryCodes = map[string]string{
	"turkey":               "TR",
	"türkiye":              "TR",
	"syria":                "SY",
	"saudi arabia":         "SA",
	"united arab emirates": "AE",
	"qatar":                "QA",
	"kuwait":               "KW",
	"bahrain":              "BH",
	"oman":                 "OM",
	"yemen":                "YE",
	"palestine":            "PS",
	"jordan":               "JO",
	"lebanon":              "LB",
	"iraq":                 "IQ",
	"egypt":                "EG",
	"morocco":              "MA",
	"algeria":              "DZ",
	"tunisia":              "TN",
	"libya":                "LY",
	"sudan":                "SD",
	"united states":        "US",
	"usa":                  "US",
	"united kingdom":       "GB",
	"uk":                   "GB",
	"germany":              "DE",
	"france":               "FR",
	"spain":                "ES",
	"italy":                "IT",
	"netherlands":          "NL",
	"belgium":              "BE",
	"austria":              "AT",
	"switzerland":          "CH",
	"sweden":               "SE",
	"norway":               "NO",
	"denmark":              "DK",
	"finland":              "FI",
	"poland":               "PL",
	"greece":               "GR",
	"portugal":             "PT",
	"russia":               "RU",
	"ukraine":              "UA",
	"canada":               "CA",
	"australia":            "AU",
	"japan":                "JP",
	"china":                "CN",
	"india":                "IN",
	"pakistan":             "PK",
	"indonesia":            "ID",
	"malaysia":             "MY",
	"brazil":               "BR",
}
