package core

import (
	"fmt"
	"strings"
)

// ScriptIdentity is how a script introduces itself to the site. Every field
// but Source is mandatory.
type ScriptIdentity struct {
	Name    string
	Version string
	// Author is the nation that wrote the script.
	Author string
	// User is the nation running it.
	User string
	// Source optionally links to the script's source code.
	Source string
}

func (id ScriptIdentity) Validate() error {
	missing := []string{}
	if strings.TrimSpace(id.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(id.Version) == "" {
		missing = append(missing, "version")
	}
	if strings.TrimSpace(id.Author) == "" {
		missing = append(missing, "author")
	}
	if strings.TrimSpace(id.User) == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: script identity is missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// UserAgent renders the identity, e.g.
// "Prepper/1.2 (by:Testlandia; usedBy:Maxtopia); src:https://example.com; Written with nsdotgo/1.0.0"
func (id ScriptIdentity) UserAgent() string {
	var ua strings.Builder
	fmt.Fprintf(
		&ua, "%s/%s (by:%s; usedBy:%s)",
		strings.TrimSpace(id.Name),
		strings.TrimSpace(id.Version),
		strings.TrimSpace(id.Author),
		strings.TrimSpace(id.User),
	)
	if src := strings.TrimSpace(id.Source); src != "" {
		fmt.Fprintf(&ua, "; src:%s", src)
	}
	fmt.Fprintf(&ua, "; Written with nsdotgo/%s", Version)
	return ua.String()
}
