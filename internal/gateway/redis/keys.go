package redis

// Row keys hold one JSON record each; the set keys index them.
const (
	keyPrefix = "shelf:"

	prefixUser       = keyPrefix + "user:"
	prefixFolder     = keyPrefix + "folder:"
	prefixList       = keyPrefix + "list:"
	prefixLibrary    = keyPrefix + "library:"
	prefixItem       = keyPrefix + "item:"
	prefixCredential = keyPrefix + "credential:"
)

func UserKey(id string) string             { return prefixUser + id }
func FolderKey(id string) string           { return prefixFolder + id }
func ListKey(id string) string             { return prefixList + id }
func ItemKey(id string) string             { return prefixItem + id }
func CredentialKey(username string) string { return prefixCredential + username }

func LibraryKey(userID, listID string) string {
	return prefixLibrary + userID + ":" + listID
}

// UserFoldersKey is the set of folder ids owned by a user.
func UserFoldersKey(userID string) string { return UserKey(userID) + ":folders" }

// UserLibraryKey is the set of list ids placed in a user's library.
func UserLibraryKey(userID string) string { return UserKey(userID) + ":library" }

// ListPlacementsKey is the set of user ids whose library holds the list.
func ListPlacementsKey(listID string) string { return ListKey(listID) + ":placements" }

// ListItemsKey is the set of item ids of a list.
func ListItemsKey(listID string) string { return ListKey(listID) + ":items" }
