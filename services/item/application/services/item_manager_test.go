package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

type managerFixture struct {
	records *memRecords
	geo     *memGeo
	blobs   *memBlobs
	m       *ItemManager
}

func newManagerFixture() *managerFixture {
	f := &managerFixture{records: newMemRecords(), geo: newMemGeo(), blobs: newMemBlobs()}
	log := newTestLogger()
	ix := NewIndexer(f.geo, f.records, log)
	ix.backoff = func() retry.Backoff { return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond)) }
	f.m = NewItemManager(f.records, f.geo, f.blobs, ix, log)
	f.m.now = func() time.Time { return time.Date(2024, 2, 1, 10, 30, 5, 0, time.UTC) }
	return f
}

func validInput() CreateItemInput {
	return CreateItemInput{
		Name:        "Brown wallet",
		Details:     "Leather, found near the fountain",
		Category:    "found",
		Subcategory: "accessories",
		Latitude:    40.4168,
		Longitude:   -3.7038,
		Images:      [][]byte{jpegBytes, pngBytes},
	}
}

func TestItemManager_Create(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()

	item, err := f.m.Create(ctx, "alice", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if item.ID != "alice20240201103005" {
		t.Fatalf("unexpected id %q", item.ID)
	}
	if item.CreatedAt != "10-30-01-02-2024" {
		t.Fatalf("unexpected created at %q", item.CreatedAt)
	}
	if item.Thumbnail == nil {
		t.Fatal("expected thumbnail link")
	}

	if _, ok := f.records.recs[item.ID]; !ok {
		t.Fatal("record not written")
	}
	if _, ok := f.geo.locs[item.ID]; !ok {
		t.Fatal("location not indexed")
	}

	wantTypes := map[string]string{
		models.ThumbnailPath(item.ID): "image/jpeg",
		models.ImagePath(item.ID, 0):  "image/jpeg",
		models.ImagePath(item.ID, 1):  "image/png",
	}
	for p, ct := range wantTypes {
		if got := f.blobs.types[p]; got != ct {
			t.Errorf("%s: content type %q, want %q", p, got, ct)
		}
	}
}

func TestItemManager_CreateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateItemInput)
		wantErr error
	}{
		{"unknown category", func(in *CreateItemInput) { in.Category = "stolen" }, itemdomain.ErrInvalidCategory},
		{"unknown subcategory", func(in *CreateItemInput) { in.Subcategory = "boats" }, itemdomain.ErrInvalidItem},
		{"blank name", func(in *CreateItemInput) { in.Name = "   " }, itemdomain.ErrInvalidItem},
		{"blank details", func(in *CreateItemInput) { in.Details = "" }, itemdomain.ErrInvalidItem},
		{"adoption of a wallet", func(in *CreateItemInput) { in.Category = "adoption" }, itemdomain.ErrInvalidItem},
		{"latitude out of range", func(in *CreateItemInput) { in.Latitude = 91 }, itemdomain.ErrInvalidItem},
		{"not an image", func(in *CreateItemInput) { in.Images = [][]byte{[]byte("plain text")} }, itemdomain.ErrInvalidItem},
		{"too many images", func(in *CreateItemInput) {
			in.Images = make([][]byte, maxImages+1)
			for i := range in.Images {
				in.Images[i] = pngBytes
			}
		}, itemdomain.ErrInvalidItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture()
			in := validInput()
			tt.mutate(&in)

			_, err := f.m.Create(context.Background(), "alice", in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(f.records.recs) != 0 || len(f.blobs.objects) != 0 {
				t.Fatal("nothing should be stored for a rejected item")
			}
		})
	}
}

func TestItemManager_CreateSameSecond(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	if _, err := f.m.Create(ctx, "alice", validInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	first := f.blobs.objects[models.ImagePath("alice20240201103005", 0)]

	in := validInput()
	in.Images = [][]byte{pngBytes}
	if _, err := f.m.Create(ctx, "alice", in); !errors.Is(err, itemdomain.ErrItemAlreadyExists) {
		t.Fatalf("expected ErrItemAlreadyExists, got %v", err)
	}
	if got := f.blobs.objects[models.ImagePath("alice20240201103005", 0)]; string(got) != string(first) {
		t.Fatal("images of the existing item were overwritten")
	}
}

func TestItemManager_CreateUploadFailure(t *testing.T) {
	f := newManagerFixture()
	f.blobs.failOn = "_1"

	if _, err := f.m.Create(context.Background(), "alice", validInput()); err == nil {
		t.Fatal("expected upload error")
	}
	if len(f.records.recs) != 0 {
		t.Fatal("record must not be written when uploads fail")
	}
}

func TestItemManager_CreateSurvivesIndexFailure(t *testing.T) {
	f := newManagerFixture()
	f.geo.failures = 10

	item, err := f.m.Create(context.Background(), "alice", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := f.records.recs[item.ID]; !ok {
		t.Fatal("record should be written even when indexing fails")
	}
}

func TestItemManager_Get(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	created, err := f.m.Create(ctx, "alice", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("indexed position wins", func(t *testing.T) {
		f.geo.locs[created.ID] = models.Coordinate{Latitude: 1, Longitude: 2}
		got, err := f.m.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Location.Latitude != 1 || got.Thumbnail == nil {
			t.Fatalf("unexpected item %+v", got)
		}
	})

	t.Run("falls back to stored position", func(t *testing.T) {
		delete(f.geo.locs, created.ID)
		got, err := f.m.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Location.Latitude != 40.4168 {
			t.Fatalf("expected stored latitude, got %v", got.Location.Latitude)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		if _, err := f.m.Get(ctx, "nobody"); !errors.Is(err, itemdomain.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestItemManager_Images(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	in := validInput()
	in.Images = make([][]byte, 0, 8)
	for range 8 {
		in.Images = append(in.Images, pngBytes)
	}
	item, err := f.m.Create(ctx, "alice", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Ten sorts before two lexically; upload order must win.
	f.blobs.objects[models.ImagePath(item.ID, 10)] = pngBytes

	links, err := f.m.Images(ctx, item.ID)
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(links) != 9 {
		t.Fatalf("expected 9 links, got %d", len(links))
	}
	if links[2].Path != "/"+models.ImagePath(item.ID, 2) || links[8].Path != "/"+models.ImagePath(item.ID, 10) {
		t.Fatalf("links out of order: %v, %v", links[2], links[8])
	}

	if _, err := f.m.Images(ctx, "nobody"); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestImageIndex(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"items/a/images/a_0", 0},
		{"items/a/images/a_12", 12},
		{"items/a/images/cover", int(^uint(0) >> 1)},
		{"items/a/images/a_x", int(^uint(0) >> 1)},
	}
	for _, tt := range tests {
		if got := imageIndex(tt.path); got != tt.want {
			t.Errorf("imageIndex(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}
