package domain

import "context"

// Gateway is the remote row store the entity wrappers synchronize against.
// Every call is atomic on its own; nothing spans entities.
//
// Retrieve* return an error wrapping ErrNotFound when the row is absent.
// Backend failures are reported as *TransportError and rejected writes as
// *ValidationError.
type Gateway interface {
	UserGateway
	FolderGateway
	ListGateway
	ItemGateway
}

type UserGateway interface {
	RetrieveUser(ctx context.Context, id string) (UserRecord, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) error
	StoreNewUser(ctx context.Context, rec UserRecord) error
	DeleteUser(ctx context.Context, id string) error
}

type FolderGateway interface {
	RetrieveFolder(ctx context.Context, id string) (FolderRecord, error)
	UpdateFolder(ctx context.Context, id string, upd FolderUpdate) error
	StoreNewFolder(ctx context.Context, rec FolderRecord) error
	DeleteFolder(ctx context.Context, id string) error

	// QueryFolders returns every folder owned by ownerID, in no particular order.
	QueryFolders(ctx context.Context, ownerID string) ([]FolderRecord, error)
}

type ListGateway interface {
	RetrieveList(ctx context.Context, id string) (ListRecord, error)
	UpdateList(ctx context.Context, id string, upd ListUpdate) error
	StoreNewList(ctx context.Context, rec ListRecord) error
	DeleteList(ctx context.Context, id string) error

	// Library configuration is keyed by (userID, listID) and persisted apart
	// from the canonical list row.
	RetrieveLibraryListConfig(ctx context.Context, userID, listID string) (LibraryListRecord, error)
	UpdateLibraryListConfig(ctx context.Context, userID, folderID, listID string, upd LibraryListUpdate) error
	StoreNewLibraryList(ctx context.Context, rec LibraryListRecord) error
	DeleteLibraryList(ctx context.Context, userID, listID string) error
	QueryLibraryLists(ctx context.Context, userID string) ([]LibraryListRecord, error)
}

type ItemGateway interface {
	RetrieveListItem(ctx context.Context, id string) (ListItemRecord, error)
	UpdateListItem(ctx context.Context, id string, upd ListItemUpdate) error
	StoreNewListItem(ctx context.Context, rec ListItemRecord) error
	DeleteListItem(ctx context.Context, id string) error
	QueryListItems(ctx context.Context, listID string) ([]ListItemRecord, error)
}

// HealthChecker is implemented by backends that can report reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
