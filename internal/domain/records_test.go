package domain_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/gateway/memory"
)

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		decode  func([]byte) error
		input   string
		wantErr bool
	}{
		{"user ok", decodeUser, `{"id":"u1","username":"ada","created_at":"2024-03-01T10:00:00Z","updated_at":"2024-03-01T10:00:00Z"}`, false},
		{"user truncated", decodeUser, `{"id":`, true},
		{"user missing timestamps", decodeUser, `{"id":"u1","username":"ada"}`, true},
		{"folder self parent", decodeFolder, `{"id":"f1","owner_id":"u1","parent_folder_id":"f1","created_at":"2024-03-01T10:00:00Z","updated_at":"2024-03-01T10:00:00Z"}`, true},
		{"list ok", decodeList, `{"id":"l1","owner_id":"u1","title":"x","created_at":"2024-03-01T10:00:00Z","updated_at":"2024-03-01T10:00:00Z"}`, false},
		{"library bad sort", decodeLibrary, `{"user_id":"u1","list_id":"l1","sort_order":"random"}`, true},
		{"library bad weekday", decodeLibrary, `{"user_id":"u1","list_id":"l1","notify_days":"funday"}`, true},
		{"library bad time", decodeLibrary, `{"user_id":"u1","list_id":"l1","notify_time":"25:99"}`, true},
		{"library ok", decodeLibrary, `{"user_id":"u1","list_id":"l1","sort_order":"manual","notify_days":"friday","notify_time":"08:30"}`, false},
		{"item wrong type", decodeItem, `{"id":"i1","list_id":"l1","image_urls":"a.png"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !domain.IsDecode(err) {
				t.Errorf("err = %T, want *DecodeError", err)
			}
		})
	}
}

func decodeUser(b []byte) error    { _, err := domain.DecodeUserRecord(b); return err }
func decodeFolder(b []byte) error  { _, err := domain.DecodeFolderRecord(b); return err }
func decodeList(b []byte) error    { _, err := domain.DecodeListRecord(b); return err }
func decodeLibrary(b []byte) error { _, err := domain.DecodeLibraryListRecord(b); return err }
func decodeItem(b []byte) error    { _, err := domain.DecodeListItemRecord(b); return err }

func TestTransportErrorRecoverable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			e := &domain.TransportError{Op: "retrieve list", StatusCode: tt.status, Err: errors.New("boom")}
			if got := e.Recoverable(); got != tt.want {
				t.Errorf("Recoverable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), domain.NotFound("list", "l1"))
	if !domain.IsNotFound(wrapped) {
		t.Error("IsNotFound missed a joined error")
	}
	if domain.IsTransport(wrapped) || domain.IsValidation(wrapped) || domain.IsDecode(wrapped) {
		t.Error("NotFound misclassified")
	}
	cause := errors.New("bad json")
	de := &domain.DecodeError{Entity: "user", Err: cause}
	if !errors.Is(de, cause) {
		t.Error("DecodeError does not unwrap")
	}
}

func item(t *testing.T, id, title, created string, order *int) *domain.ListItem {
	t.Helper()
	rec := domain.ListItemRecord{ID: id, ListID: "l1", Content: id, CreatedAt: created, UpdatedAt: created, OrderIndex: order}
	if title != "" {
		rec.Title = strp(title)
	}
	it, err := domain.ListItemFromRaw(memory.NewStore(), rec)
	if err != nil {
		t.Fatal(err)
	}
	return it
}

func TestSortItems(t *testing.T) {
	mk := func(t *testing.T) []*domain.ListItem {
		return []*domain.ListItem{
			item(t, "a", "banana", "2024-03-02T00:00:00Z", intp(2)),
			item(t, "b", "Apple", "2024-03-03T00:00:00Z", nil),
			item(t, "c", "cherry", "2024-03-01T00:00:00Z", intp(1)),
		}
	}
	tests := []struct {
		order domain.SortOrder
		want  string
	}{
		{domain.SortDateFirst, "bac"},
		{domain.SortDateLast, "cab"},
		{domain.SortAlphabetical, "bac"},
		{domain.SortManual, "cab"},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			items := mk(t)
			domain.SortItems(items, tt.order)
			got := ""
			for _, it := range items {
				got += it.ID()
			}
			if got != tt.want {
				t.Errorf("order = %s, want %s", got, tt.want)
			}
		})
	}
}
