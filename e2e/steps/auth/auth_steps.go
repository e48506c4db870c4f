//go:build e2e

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	POSTWithHeaders(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetBaseURL() string
	GetHTTPClient() *http.Client
	EmailFor(alias string) string
}

// concurrentResult holds the result of a concurrent HTTP request
type concurrentResult struct {
	status int
	body   []byte
	err    error
}

type session struct {
	token     string
	sessionID string
}

type account struct {
	email    string
	password string
	sessions map[string]session
}

var publicIDPattern = regexp.MustCompile(`^\d{8}$`)

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc, accounts: make(map[string]*account)}

	// Account steps
	ctx.Step(`^I register as "([^"]*)" with password "([^"]*)"$`, steps.registerAs)
	ctx.Step(`^a registered user "([^"]*)" with password "([^"]*)"$`, steps.registeredUser)
	ctx.Step(`^I register again as "([^"]*)"$`, steps.registerAgain)
	ctx.Step(`^I register with email "([^"]*)"$`, steps.registerWithEmail)

	// Login steps
	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.loginAs)
	ctx.Step(`^I log in with email "([^"]*)" and password "([^"]*)"$`, steps.loginWithEmail)
	ctx.Step(`^"([^"]*)" has logged in as session "([^"]*)"$`, steps.loggedInAsSession)
	ctx.Step(`^"([^"]*)" has logged in from device "([^"]*)"$`, steps.loggedInFromDevice)

	// Session steps
	ctx.Step(`^I validate the token of "([^"]*)"$`, steps.validateToken)
	ctx.Step(`^"([^"]*)" logs out of the current session$`, steps.logoutCurrent)
	ctx.Step(`^"([^"]*)" logs out session "([^"]*)" using session "([^"]*)"$`, steps.logoutSessionUsing)
	ctx.Step(`^"([^"]*)" lists sessions$`, steps.listSessions)

	// Response assertions
	ctx.Step(`^the response user should have an 8-digit userId$`, steps.responseUserHasPublicID)
	ctx.Step(`^the response should list (\d+) sessions$`, steps.responseShouldListNSessions)
	ctx.Step(`^the newest session should be current with device "([^"]*)"$`, steps.newestSessionShouldBeCurrent)
	ctx.Step(`^the logged out session should be "([^"]*)" of "([^"]*)"$`, steps.loggedOutSessionShouldBe)

	// Concurrent logout steps
	ctx.Step(`^"([^"]*)" logs out session "([^"]*)" twice concurrently using session "([^"]*)"$`, steps.concurrentLogout)
	ctx.Step(`^exactly one request should succeed with status (\d+)$`, steps.exactlyOneRequestShouldSucceedWithStatus)
	ctx.Step(`^exactly one request should fail with status (\d+)$`, steps.exactlyOneRequestShouldFailWithStatus)
}

type authSteps struct {
	tc                TestContext
	accounts          map[string]*account
	concurrentResults []concurrentResult
}

func (s *authSteps) account(alias string) *account {
	acc, ok := s.accounts[alias]
	if !ok {
		acc = &account{email: s.tc.EmailFor(alias), sessions: make(map[string]session)}
		s.accounts[alias] = acc
	}
	return acc
}

func (s *authSteps) session(alias, name string) (session, error) {
	sess, ok := s.account(alias).sessions[name]
	if !ok {
		return session{}, fmt.Errorf("no session %q saved for %q", name, alias)
	}
	return sess, nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// saveSession records token and sessionId from a successful register or login.
func (s *authSteps) saveSession(alias string, names ...string) error {
	if status := s.tc.GetLastResponseStatus(); status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("expected successful auth response, got %d: %s", status, s.tc.GetLastResponseBody())
	}
	var body struct {
		Token     string `json:"token"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse auth response: %w", err)
	}
	if body.Token == "" || body.SessionID == "" {
		return fmt.Errorf("auth response missing token or sessionId")
	}
	acc := s.account(alias)
	sess := session{token: body.Token, sessionID: body.SessionID}
	acc.sessions["current"] = sess
	for _, name := range names {
		acc.sessions[name] = sess
	}
	return nil
}

func (s *authSteps) register(email, password, name string) error {
	return s.tc.POST("/auth/register", map[string]any{
		"email":       email,
		"password":    password,
		"name":        name,
		"age":         31,
		"fitnessGoal": "Improve mobility",
	})
}

func (s *authSteps) registerAs(ctx context.Context, alias, password string) error {
	acc := s.account(alias)
	acc.password = password
	if err := s.register(acc.email, password, alias); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == http.StatusCreated {
		return s.saveSession(alias)
	}
	return nil
}

func (s *authSteps) registeredUser(ctx context.Context, alias, password string) error {
	if err := s.registerAs(ctx, alias, password); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusCreated {
		return fmt.Errorf("registration of %q failed with %d: %s", alias, status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *authSteps) registerAgain(ctx context.Context, alias string) error {
	acc := s.account(alias)
	return s.register(acc.email, "another-secret", alias+" again")
}

func (s *authSteps) registerWithEmail(ctx context.Context, email string) error {
	return s.register(email, "secret123", "Someone")
}

func (s *authSteps) login(alias, password, device string) error {
	body := map[string]any{
		"email":    s.account(alias).email,
		"password": password,
	}
	if device != "" {
		body["deviceInfo"] = device
	}
	return s.tc.POST("/auth/login", body)
}

func (s *authSteps) loginAs(ctx context.Context, alias, password string) error {
	if err := s.login(alias, password, ""); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == http.StatusOK {
		return s.saveSession(alias)
	}
	return nil
}

func (s *authSteps) loginWithEmail(ctx context.Context, email, password string) error {
	return s.tc.POST("/auth/login", map[string]any{"email": email, "password": password})
}

func (s *authSteps) loggedInAsSession(ctx context.Context, alias, name string) error {
	if err := s.login(alias, s.account(alias).password, ""); err != nil {
		return err
	}
	return s.saveSession(alias, name)
}

func (s *authSteps) loggedInFromDevice(ctx context.Context, alias, device string) error {
	if err := s.login(alias, s.account(alias).password, device); err != nil {
		return err
	}
	return s.saveSession(alias)
}

func (s *authSteps) validateToken(ctx context.Context, alias string) error {
	sess, err := s.session(alias, "current")
	if err != nil {
		return err
	}
	return s.tc.GET("/auth/validate", bearer(sess.token))
}

func (s *authSteps) logoutCurrent(ctx context.Context, alias string) error {
	return s.logoutSessionUsing(ctx, alias, "current", "current")
}

func (s *authSteps) logoutSessionUsing(ctx context.Context, alias, target, caller string) error {
	targetSession, err := s.session(alias, target)
	if err != nil {
		return err
	}
	callerSession, err := s.session(alias, caller)
	if err != nil {
		return err
	}
	return s.tc.POSTWithHeaders("/auth/logout",
		map[string]string{"sessionId": targetSession.sessionID},
		bearer(callerSession.token))
}

func (s *authSteps) listSessions(ctx context.Context, alias string) error {
	sess, err := s.session(alias, "current")
	if err != nil {
		return err
	}
	return s.tc.GET("/auth/sessions", bearer(sess.token))
}

func (s *authSteps) responseUserHasPublicID(ctx context.Context) error {
	var body struct {
		User struct {
			UserID string `json:"userId"`
		} `json:"user"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !publicIDPattern.MatchString(body.User.UserID) {
		return fmt.Errorf("expected 8-digit userId, got %q", body.User.UserID)
	}
	return nil
}

type sessionRow struct {
	SessionID  string `json:"sessionId"`
	DeviceInfo string `json:"deviceInfo"`
	IsCurrent  bool   `json:"isCurrent"`
	IsActive   bool   `json:"isActive"`
}

func (s *authSteps) sessions() ([]sessionRow, error) {
	var body struct {
		Sessions []sessionRow `json:"sessions"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return body.Sessions, nil
}

func (s *authSteps) responseShouldListNSessions(ctx context.Context, n int) error {
	rows, err := s.sessions()
	if err != nil {
		return err
	}
	if len(rows) != n {
		return fmt.Errorf("expected %d sessions, got %d", n, len(rows))
	}
	return nil
}

func (s *authSteps) newestSessionShouldBeCurrent(ctx context.Context, device string) error {
	rows, err := s.sessions()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no sessions listed")
	}
	newest := rows[0]
	if !newest.IsCurrent || !newest.IsActive {
		return fmt.Errorf("newest session should be current and active: %+v", newest)
	}
	if newest.DeviceInfo != device {
		return fmt.Errorf("expected device %q, got %q", device, newest.DeviceInfo)
	}
	return nil
}

func (s *authSteps) loggedOutSessionShouldBe(ctx context.Context, name, alias string) error {
	sess, err := s.session(alias, name)
	if err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("sessionId")
	if err != nil {
		return err
	}
	if got != sess.sessionID {
		return fmt.Errorf("expected sessionId %s, got %v", sess.sessionID, got)
	}
	return nil
}

// concurrentLogout fires two logouts of the same session at once.
func (s *authSteps) concurrentLogout(ctx context.Context, alias, target, caller string) error {
	targetSession, err := s.session(alias, target)
	if err != nil {
		return err
	}
	callerSession, err := s.session(alias, caller)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]string{"sessionId": targetSession.sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	var wg sync.WaitGroup
	results := make([]concurrentResult, 2)
	start := make(chan struct{})

	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start

			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				s.tc.GetBaseURL()+"/auth/logout", bytes.NewReader(data))
			if err != nil {
				results[idx] = concurrentResult{err: err}
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+callerSession.token)

			resp, err := s.tc.GetHTTPClient().Do(req)
			if err != nil {
				results[idx] = concurrentResult{err: err}
				return
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				results[idx] = concurrentResult{err: err}
				return
			}
			results[idx] = concurrentResult{status: resp.StatusCode, body: respBody}
		}(i)
	}

	close(start)
	wg.Wait()
	s.concurrentResults = results
	return nil
}

// exactlyOneRequestShouldSucceedWithStatus verifies exactly one concurrent request succeeded
func (s *authSteps) exactlyOneRequestShouldSucceedWithStatus(ctx context.Context, expectedStatus int) error {
	return s.exactlyOneWithStatus(expectedStatus)
}

// exactlyOneRequestShouldFailWithStatus verifies exactly one concurrent request failed
func (s *authSteps) exactlyOneRequestShouldFailWithStatus(ctx context.Context, expectedStatus int) error {
	return s.exactlyOneWithStatus(expectedStatus)
}

func (s *authSteps) exactlyOneWithStatus(expectedStatus int) error {
	count := 0
	for _, r := range s.concurrentResults {
		if r.err != nil {
			return fmt.Errorf("concurrent request failed: %w", r.err)
		}
		if r.status == expectedStatus {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("expected exactly 1 request with status %d, got %d (%+v)", expectedStatus, count, s.concurrentResults)
	}
	return nil
}
