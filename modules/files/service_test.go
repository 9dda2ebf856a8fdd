package files

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

// mockObjectStore is a mock implementation of ObjectStore for testing.
type mockObjectStore struct {
	objects map[string]mockObject
}

type mockObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{
		objects: make(map[string]mockObject),
	}
}

func (m *mockObjectStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	m.objects[name] = mockObject{
		data:        data,
		contentType: contentType,
		modTime:     time.Now(),
	}
	return &ObjectInfo{
		Name:        name,
		Size:        uint64(len(data)),
		ContentType: contentType,
		ModTime:     m.objects[name].modTime,
	}, nil
}

func (m *mockObjectStore) Get(_ context.Context, name string) ([]byte, *ObjectInfo, error) {
	obj, ok := m.objects[name]
	if !ok {
		return nil, nil, fmt.Errorf("object not found: %s", name)
	}
	return obj.data, &ObjectInfo{
		Name:        name,
		Size:        uint64(len(obj.data)),
		ContentType: obj.contentType,
		ModTime:     obj.modTime,
	}, nil
}

func (m *mockObjectStore) List(_ context.Context) ([]*ObjectInfo, error) {
	objects := make([]*ObjectInfo, 0, len(m.objects))
	for name, obj := range m.objects {
		objects = append(objects, &ObjectInfo{
			Name:        name,
			Size:        uint64(len(obj.data)),
			ContentType: obj.contentType,
			ModTime:     obj.modTime,
		})
	}
	return objects, nil
}

func TestService_Store(t *testing.T) {
	store := newMockObjectStore()
	service := NewService(store)
	ctx := context.Background()

	tests := []struct {
		name        string
		fileName    string
		data        []byte
		contentType string
		wantErr     bool
		wantSuffix  string
	}{
		{
			name:        "plain file name",
			fileName:    "photo.png",
			data:        []byte("png bytes"),
			contentType: "image/png",
			wantSuffix:  "-photo.png",
		},
		{
			name:        "name with unsafe characters",
			fileName:    "my photo (1).png",
			data:        []byte("png bytes"),
			contentType: "image/png",
			wantSuffix:  "-my_photo__1_.png",
		},
		{
			name:     "empty file name",
			fileName: "",
			data:     []byte("x"),
			wantErr:  true,
		},
		{
			name:     "empty data",
			fileName: "empty.txt",
			data:     nil,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, url, err := service.Store(ctx, tt.fileName, tt.data, tt.contentType)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Store() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Store() error = %v", err)
			}
			if !strings.HasSuffix(name, tt.wantSuffix) {
				t.Errorf("stored name = %q, want suffix %q", name, tt.wantSuffix)
			}
			if url != "/uploads/"+name {
				t.Errorf("url = %q, want %q", url, "/uploads/"+name)
			}
			if _, ok := store.objects[name]; !ok {
				t.Error("stored object missing from backing store")
			}
		})
	}
}

func TestService_StoreDefaultsContentType(t *testing.T) {
	store := newMockObjectStore()
	service := NewService(store)

	name, _, err := service.Store(context.Background(), "blob.bin", []byte("x"), "")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if got := store.objects[name].contentType; got != "application/octet-stream" {
		t.Errorf("content type = %q, want application/octet-stream", got)
	}
}

func TestService_Count(t *testing.T) {
	store := newMockObjectStore()
	service := NewService(store)
	ctx := context.Background()

	count, err := service.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d, want 0", count)
	}

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, _, err := service.Store(ctx, name, []byte("x"), "text/plain"); err != nil {
			t.Fatalf("Store(%s) error = %v", name, err)
		}
	}

	count, err = service.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestService_Fetch(t *testing.T) {
	store := newMockObjectStore()
	service := NewService(store)
	ctx := context.Background()

	name, _, err := service.Store(ctx, "notes.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	data, contentType, err := service.Fetch(ctx, name)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q, want %q", data, "hello")
	}
	if contentType != "text/plain" {
		t.Errorf("content type = %q, want text/plain", contentType)
	}

	if _, _, err := service.Fetch(ctx, "missing.txt"); err == nil {
		t.Error("Fetch() of missing file expected error, got nil")
	}
	if _, _, err := service.Fetch(ctx, ""); err == nil {
		t.Error("Fetch() with empty name expected error, got nil")
	}
}
