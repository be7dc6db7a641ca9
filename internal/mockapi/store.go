package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/shared"
)

var (
	errUsernameTaken = errors.New("Username already exists.")
	errEmailTaken    = errors.New("Email already exists.")
	errNoAccount     = errors.New("User not found")
	errProfileExists = errors.New("user profile with this user already exists.")
)

type account struct {
	ID           int64
	ProfileID    int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Role         shared.Role
	Phone        string
}

func (a account) profile() api.UserProfile {
	return api.UserProfile{
		ID:          a.ProfileID,
		UserID:      a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.Phone,
		Role:        a.Role,
	}
}

func (a account) summary() api.AccountUser {
	return api.AccountUser{ID: a.ID, Username: a.Username, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName}
}

type image struct {
	ContentType string
	Data        []byte
}

// store keeps every record in memory. Lists are returned newest first, the
// order the backend uses.
type store struct {
	mu        sync.RWMutex
	accounts  map[int64]*account
	reports   map[int64]api.Report
	wastes    map[int64]api.WasteType
	images    map[string]image
	accountID int64
	profileID int64
	reportID  int64
	wasteID   int64
}

func newStore() *store {
	return &store{
		accounts: make(map[int64]*account),
		reports:  make(map[int64]api.Report),
		wastes:   make(map[int64]api.WasteType),
		images:   make(map[string]image),
	}
}

func (s *store) createAccount(a account, password string) (account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, a.Username) {
			return account{}, errUsernameTaken
		}
		if a.Email != "" && strings.EqualFold(existing.Email, a.Email) {
			return account{}, errEmailTaken
		}
	}
	s.accountID++
	s.profileID++
	a.ID = s.accountID
	a.ProfileID = s.profileID
	a.PasswordHash = hash
	stored := a
	s.accounts[a.ID] = &stored
	return stored, nil
}

func (s *store) authenticate(username, password string) (account, bool) {
	s.mu.RLock()
	var found *account
	for _, a := range s.accounts {
		if a.Username == username {
			found = a
			break
		}
	}
	var candidate account
	if found != nil {
		candidate = *found
	}
	s.mu.RUnlock()
	if found == nil {
		return account{}, false
	}
	if bcrypt.CompareHashAndPassword(candidate.PasswordHash, []byte(password)) != nil {
		return account{}, false
	}
	return candidate, true
}

func (s *store) account(id int64) (account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return account{}, false
	}
	return *a, true
}

func (s *store) byProfile(profileID int64) (*account, bool) {
	if profileID == 0 {
		return nil, false
	}
	for _, a := range s.accounts {
		if a.ProfileID == profileID {
			return a, true
		}
	}
	return nil, false
}

func (s *store) profiles() []api.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.UserProfile, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.ProfileID == 0 {
			continue
		}
		out = append(out, a.profile())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) profile(id int64) (api.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byProfile(id)
	if !ok {
		return api.UserProfile{}, false
	}
	return a.profile(), true
}

func (s *store) updateProfile(id int64, phone string, role shared.Role) (api.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byProfile(id)
	if !ok {
		return api.UserProfile{}, false
	}
	a.Phone = phone
	if role != "" {
		a.Role = role
	}
	return a.profile(), true
}

// deleteProfile detaches the profile from its account. The account keeps its
// credentials and reports and gets a fresh citizen profile on next login.
func (s *store) deleteProfile(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byProfile(id)
	if !ok {
		return false
	}
	a.ProfileID = 0
	a.Phone = ""
	a.Role = ""
	return true
}

// attachProfile gives userID a profile. It fails with errProfileExists when the
// account already has one and errNoAccount when the account is unknown.
func (s *store) attachProfile(userID int64, phone string, role shared.Role) (api.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return api.UserProfile{}, errNoAccount
	}
	if a.ProfileID != 0 {
		return api.UserProfile{}, errProfileExists
	}
	s.profileID++
	a.ProfileID = s.profileID
	a.Phone = phone
	a.Role = role
	return a.profile(), nil
}

// ensureProfile returns the account's role, creating a citizen profile for
// accounts whose profile was removed.
func (s *store) ensureProfile(userID int64) (account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return account{}, false
	}
	if a.ProfileID == 0 {
		s.profileID++
		a.ProfileID = s.profileID
		a.Role = shared.RoleCitizen
		a.Phone = ""
	}
	return *a, true
}

func (s *store) wasteTypes() []api.WasteType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.WasteType, 0, len(s.wastes))
	for _, w := range s.wastes {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) wasteType(id int64) (api.WasteType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wastes[id]
	return w, ok
}

func (s *store) saveWasteType(w api.WasteType) api.WasteType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == 0 {
		s.wasteID++
		w.ID = s.wasteID
	}
	s.wastes[w.ID] = w
	return w
}

func (s *store) deleteWasteType(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wastes[id]; !ok {
		return false
	}
	delete(s.wastes, id)
	return true
}

func (s *store) withDetails(r api.Report) api.Report {
	if a, ok := s.accounts[r.UserID]; ok {
		r.UserDetails = &api.UserSummary{ID: a.ID, Username: a.Username, Email: a.Email}
	} else {
		r.UserDetails = nil
	}
	return r
}

// listReports returns every report, or only owner's when owner is non-zero.
func (s *store) listReports(owner int64) []api.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if owner != 0 && r.UserID != owner {
			continue
		}
		out = append(out, s.withDetails(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *store) report(id int64) (api.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return api.Report{}, false
	}
	return s.withDetails(r), true
}

func (s *store) createReport(r api.Report, now time.Time) api.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportID++
	r.ID = s.reportID
	r.CreatedAt = now.UTC()
	s.reports[r.ID] = r
	return s.withDetails(r)
}

func (s *store) updateReport(id int64, apply func(*api.Report)) (api.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return api.Report{}, false
	}
	apply(&r)
	s.reports[id] = r
	return s.withDetails(r), true
}

func (s *store) deleteReport(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return false
	}
	delete(s.reports, id)
	return true
}

func (s *store) saveImage(name string, img image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = img
}

func (s *store) image(name string) (image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[name]
	return img, ok
}
