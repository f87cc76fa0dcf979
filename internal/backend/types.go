package backend

import (
	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/l10n"
)

// User is the account record as the backend reports it.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Phone       string `json:"phone,omitempty"`
}

// AuthResult is the payload of a successful login or signup.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SignupRequest carries the fields of the public signup form.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone,omitempty"`
}

// Category is a classified-ads category with its multilingual name.
type Category struct {
	ID       int64     `json:"id"`
	Slug     string    `json:"slug"`
	Name     l10n.Name `json:"name"`
	ParentID int64     `json:"parentId,omitempty"`
}

// City is a supported city with its multilingual name.
type City struct {
	ID   int64     `json:"id"`
	Slug string    `json:"slug"`
	Name l10n.Name `json:"name"`
}

// Ad is the subset of an ad record the moderation surface needs.
type Ad struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	CategoryID int64   `json:"categoryId"`
	CityID     int64   `json:"cityId"`
	Price      float64 `json:"price"`
	OwnerID    string  `json:"ownerId"`
	CreatedAt  string  `json:"createdAt"`
}

// Report is a user report against an ad or another user.
type Report struct {
	ID         string `json:"id"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	ReporterID string `json:"reporterId"`
	CreatedAt  string `json:"createdAt"`
}

// permissionRecord is the backend's wire shape for one catalog entry.
type permissionRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

func toDomainPermissions(records []permissionRecord) []authz.Permission {
	perms := make([]authz.Permission, 0, len(records))
	for _, r := range records {
		perms = append(perms, authz.Permission{
			ID:          r.ID,
			Name:        authz.PermissionName(r.Name),
			Resource:    r.Resource,
			Action:      r.Action,
			Description: r.Description,
		})
	}
	return perms
}
