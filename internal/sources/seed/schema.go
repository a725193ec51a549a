package seed

// Document is the top-level structure of a seed file.
type Document struct {
	Users []User `yaml:"users"`
}

// User is one account. Password is optional; without it the user exists
// but cannot sign in.
type User struct {
	ID                   string   `yaml:"id"`
	Username             string   `yaml:"username"`
	Email                string   `yaml:"email,omitempty"`
	Password             string   `yaml:"password,omitempty"`
	AvatarURL            string   `yaml:"avatar_url,omitempty"`
	NotificationsEnabled bool     `yaml:"notifications_enabled,omitempty"`
	Folders              []Folder `yaml:"folders,omitempty"`
	Lists                []List   `yaml:"lists,omitempty"`
	// Library places lists owned by other users into this user's folders.
	Library []Placement `yaml:"library,omitempty"`
}

// Folder nests; children get the enclosing folder as parent.
type Folder struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Folders []Folder `yaml:"folders,omitempty"`
}

// List is owned by the enclosing user. When Folder is set the list is
// also placed in the owner's library with the embedded settings.
type List struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description,omitempty"`
	CoverImageURL string `yaml:"cover_image_url,omitempty"`
	Public        bool   `yaml:"public,omitempty"`
	Items         []Item `yaml:"items,omitempty"`

	Settings `yaml:",inline"`
}

// Placement puts an existing list into the enclosing user's library.
type Placement struct {
	List string `yaml:"list"`

	Settings `yaml:",inline"`
}

// Settings are the per-user library fields of a list.
type Settings struct {
	Folder      string `yaml:"folder,omitempty"`
	SortOrder   string `yaml:"sort_order,omitempty"`
	Today       bool   `yaml:"today,omitempty"`
	CurrentItem string `yaml:"current_item,omitempty"`
	NotifyOnNew bool   `yaml:"notify_on_new,omitempty"`
	NotifyTime  string `yaml:"notify_time,omitempty"`
	NotifyDays  string `yaml:"notify_days,omitempty"`
	OrderIndex  *int   `yaml:"order_index,omitempty"`
}

type Item struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title,omitempty"`
	Content    string   `yaml:"content"`
	ImageURLs  []string `yaml:"image_urls,omitempty"`
	OrderIndex *int     `yaml:"order_index,omitempty"`
}
