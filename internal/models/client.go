package models

import (
	"strings"
	"time"
)

// Client is the customer a solution is being assembled for
type Client struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CompanyName string            `json:"company_name"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	Industries  []string          `json:"industries,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// WorksIn checks if the client is associated with an industry.
// A client without industries is not restricted.
func (c *Client) WorksIn(industryID string) bool {
	if c == nil || !c.IsActive {
		return false
	}
	if len(c.Industries) == 0 {
		return true
	}

	for _, id := range c.Industries {
		if strings.EqualFold(id, industryID) {
			return true
		}
	}

	return false
}

// ShortID returns the first 8 characters of the client id for logging
func (c *Client) ShortID() string {
	if len(c.ID) < 8 {
		return c.ID
	}
	return c.ID[:8] + "..."
}
