package mockdata

import "fmt"

// LoginToken is the offline bearer token issued now.
func (c *Catalog) LoginToken() string {
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()

	return fmt.Sprintf("mock-jwt-token-%d", now.UnixMilli())
}

// LoginRoles grants admin only to the user named "admin". This is a demo
// affordance for running without a backend and carries no authority.
func LoginRoles(username string) []string {
	if username == "admin" {
		return []string{"admin"}
	}

	return []string{"user"}
}
