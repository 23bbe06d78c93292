// Package auth reads the shared users.csv directory and decides which
// branch a login operates on. It is deliberately small: the tracker
// trusts the shared folder, so this is branch selection, not security.
package auth

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// User is one row of users.csv.
type User struct {
	Username string
	Password string
	Branch   string
}

// rootUser may log into any branch instead of being pinned to one.
const rootUser = "root"

// Directory is the loaded user list.
type Directory struct {
	users []User
}

// ErrInvalidCredentials is returned when the username is unknown or the
// password does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Load reads users.csv from path. Expected header: username,password,branch.
// A missing file yields an empty directory; rows with fewer than three
// fields are skipped.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Directory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	d := &Directory{}
	lines := strings.Split(string(data), "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		d.users = append(d.users, User{
			Username: strings.TrimSpace(parts[0]),
			Password: strings.TrimSpace(parts[1]),
			Branch:   strings.TrimSpace(parts[2]),
		})
	}
	return d, nil
}

// Empty reports whether the directory has no users at all.
func (d *Directory) Empty() bool {
	return len(d.users) == 0
}

// Branches returns the distinct branch names, case-insensitively deduped
// and sorted.
func (d *Directory) Branches() []string {
	seen := make(map[string]bool)
	var branches []string
	for _, u := range d.users {
		key := strings.ToLower(u.Branch)
		if u.Branch == "" || seen[key] {
			continue
		}
		seen[key] = true
		branches = append(branches, u.Branch)
	}
	sort.Strings(branches)
	return branches
}

// Lookup finds a user by name, case-insensitively.
func (d *Directory) Lookup(username string) (User, bool) {
	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return User{}, false
}

// Login validates the credentials and resolves the branch the session
// will operate on. Non-root users are pinned to their directory branch;
// root must name one explicitly.
func (d *Directory) Login(username, password, branch string) (User, string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, "", errors.New("please enter username and password")
	}

	u, ok := d.Lookup(username)
	if !ok || u.Password != password {
		return User{}, "", ErrInvalidCredentials
	}

	if strings.EqualFold(u.Username, rootUser) {
		if strings.TrimSpace(branch) == "" {
			return User{}, "", errors.New("please select a branch")
		}
		return u, branch, nil
	}

	return u, u.Branch, nil
}
