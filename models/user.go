package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const RoleAdmin = "admin"

// User mirrors the public users table kept alongside the identity service.
type User struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Email       string    `gorm:"type:text;index" json:"email"`
	DisplayName string    `gorm:"type:text" json:"display_name,omitempty"`
	Role        string    `gorm:"type:varchar(20);default:'user';index" json:"role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Settings is the single-row site configuration table (id = 1).
type Settings struct {
	ID        int            `gorm:"primaryKey" json:"id"`
	Data      datatypes.JSON `gorm:"type:jsonb" json:"data"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

const SettingsRowID = 1

type AdminCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SettingsData is the subset of the settings document this service reads.
type SettingsData struct {
	AdminEmails      []string          `json:"adminEmails"`
	AdminCredentials *AdminCredentials `json:"adminCredentials"`
}

// Decode parses the settings document. An empty document decodes to zero values.
func (s *Settings) Decode() (SettingsData, error) {
	var out SettingsData
	if len(s.Data) == 0 {
		return out, nil
	}
	err := json.Unmarshal(s.Data, &out)
	return out, err
}
