package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultViewMode    = "Normal"
	DefaultType        = "auto"
	DefaultStyleName   = "ansel_default"
	DefaultGalleryName = "Unnamed"
)

// Gallery is a named, permissioned, hierarchical collection of images.
type Gallery struct {
	ID                 int64      `json:"id"`
	Owner              string     `json:"owner"`
	Name               string     `json:"name"`
	Desc               string     `json:"desc"`
	Style              string     `json:"style"`
	Category           string     `json:"category"`
	DateCreated        time.Time  `json:"date_created"`
	LastModified       time.Time  `json:"last_modified"`
	Images             int        `json:"images"`
	Slug               string     `json:"slug"`
	Age                int        `json:"age"`
	Passwd             string     `json:"-"`
	ViewMode           string     `json:"view_mode"`
	Default            int64      `json:"default"`
	DefaultType        string     `json:"default_type"`
	DefaultPrettyThumb string     `json:"default_prettythumb"`
	Download           string     `json:"download"`
	Faces              int        `json:"faces"`
	HasSubgalleries    bool       `json:"has_subgalleries"`
	Parents            string     `json:"parents,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	Perm               Permission `json:"-"`
}

// cachedGallery carries the password hash and the grants through the shared
// cache. The public JSON shape hides both.
type cachedGallery struct {
	Gallery
	PasswdHash string     `json:"passwd_hash,omitempty"`
	Perm       Permission `json:"perm"`
}

// GalleryAttributes are the caller supplied values for a new gallery.
// Missing keys, and an empty owner, name or desc, are replaced by defaults.
type GalleryAttributes map[string]any

// Get returns the attribute value for key, or nil for an unknown key.
func (g *Gallery) Get(key string) any {
	switch key {
	case "owner":
		return g.Owner
	case "name":
		return g.Name
	case "desc":
		return g.Desc
	case "style":
		return g.Style
	case "category":
		return g.Category
	case "date_created":
		return g.DateCreated
	case "last_modified":
		return g.LastModified
	case "images":
		return g.Images
	case "slug":
		return g.Slug
	case "age":
		return g.Age
	case "passwd":
		return g.Passwd
	case "view_mode":
		return g.ViewMode
	case "default":
		return g.Default
	case "default_type":
		return g.DefaultType
	case "default_prettythumb":
		return g.DefaultPrettyThumb
	case "download":
		return g.Download
	case "faces":
		return g.Faces
	case "has_subgalleries":
		return g.HasSubgalleries
	}

	return nil
}

// Set assigns one attribute by its storage name.
func (g *Gallery) Set(key string, value any) error {
	var err error

	switch key {
	case "owner":
		g.Owner, err = toString(value)
	case "name":
		g.Name, err = toString(value)
	case "desc":
		g.Desc, err = toString(value)
	case "style":
		g.Style, err = toString(value)
	case "category":
		g.Category, err = toString(value)
	case "date_created":
		g.DateCreated, err = toTime(value)
	case "last_modified":
		g.LastModified, err = toTime(value)
	case "images":
		g.Images, err = toInt(value)
	case "slug":
		g.Slug, err = toString(value)
	case "age":
		g.Age, err = toInt(value)
	case "passwd":
		g.Passwd, err = toString(value)
	case "view_mode":
		g.ViewMode, err = toString(value)
	case "default":
		var v int
		v, err = toInt(value)
		g.Default = int64(v)
	case "default_type":
		g.DefaultType, err = toString(value)
	case "default_prettythumb":
		g.DefaultPrettyThumb, err = toString(value)
	case "download":
		g.Download, err = toString(value)
	case "faces":
		g.Faces, err = toInt(value)
	case "has_subgalleries":
		var v int
		v, err = toInt(value)
		g.HasSubgalleries = v != 0
	default:
		return fmt.Errorf("unknown attribute %q", key)
	}

	if err != nil {
		return fmt.Errorf("attribute %q: %w", key, err)
	}

	return nil
}

func (g *Gallery) Permission() Permission {
	return g.Perm
}

func (g *Gallery) SetPermission(p Permission) {
	g.Perm = p
}

// Clone returns a deep copy of the gallery.
func (g *Gallery) Clone() *Gallery {
	c := *g
	c.Perm = g.Perm.Clone()
	if g.Tags != nil {
		c.Tags = append([]string(nil), g.Tags...)
	}

	return &c
}

// ParentID returns the direct parent id, or 0 for a root gallery.
func (g *Gallery) ParentID() int64 {
	if g.Parents == "" {
		return 0
	}

	idx := strings.LastIndex(g.Parents, ":")
	id, err := strconv.ParseInt(g.Parents[idx+1:], 10, 64)
	if err != nil {
		return 0
	}

	return id
}

// ChildParents is the ancestor path stored on direct children of g.
func (g *Gallery) ChildParents() string {
	return g.Parents + ":" + strconv.FormatInt(g.ID, 10)
}

// SetParent places g directly under parent.
func (g *Gallery) SetParent(parent *Gallery) {
	if parent == nil {
		g.Parents = ""
		return
	}
	g.Parents = parent.ChildParents()
}

func (g *Gallery) HasPermission(user string, groups []string, perm Perm) bool {
	return g.Perm.Has(g.Owner, user, groups, perm)
}

// IsOldEnough reports whether a viewer of the given age may see the gallery.
func (g *Gallery) IsOldEnough(user string, userAge int) bool {
	if g.Age == 0 || (user != "" && user == g.Owner) {
		return true
	}

	return userAge >= g.Age
}

// HasPasswd reports whether the gallery is still locked for user.
func (g *Gallery) HasPasswd(user string, unlocked bool) bool {
	if user != "" && user == g.Owner {
		return false
	}

	return g.Passwd != "" && !unlocked
}

// CheckPasswd compares plain against the stored password hash.
func (g *Gallery) CheckPasswd(plain string) bool {
	if g.Passwd == "" {
		return true
	}

	return bcrypt.CompareHashAndPassword([]byte(g.Passwd), []byte(plain)) == nil
}

// HashPasswd returns the bcrypt hash stored in the passwd attribute.
func HashPasswd(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// MarshalCache encodes the full gallery, password hash and grants included,
// for the shared cache.
func (g *Gallery) MarshalCache() ([]byte, error) {
	return json.Marshal(cachedGallery{Gallery: *g, PasswdHash: g.Passwd, Perm: g.Perm})
}

func UnmarshalCachedGallery(data []byte) (*Gallery, error) {
	var c cachedGallery
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	g := c.Gallery
	g.Passwd = c.PasswdHash
	g.Perm = c.Perm

	return &g, nil
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int64, int32:
		return fmt.Sprint(t), nil
	case nil:
		return "", nil
	}

	return "", fmt.Errorf("cannot use %T as string", v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		if t == "" {
			return 0, nil
		}
		return strconv.Atoi(t)
	case nil:
		return 0, nil
	}

	return 0, fmt.Errorf("cannot use %T as int", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case float64:
		return time.Unix(int64(t), 0).UTC(), nil
	case nil:
		return time.Time{}, nil
	}

	return time.Time{}, fmt.Errorf("cannot use %T as time", v)
}
