package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalStore_PutDelete(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "wwwroot")
	s, err := NewLocalStore(root)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Put(ctx, "media/cat.png", strings.NewReader("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "media/cat.png", strings.NewReader("second")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "media", "cat.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, _ := os.ReadDir(filepath.Join(root, "media"))
	if len(entries) != 1 {
		t.Errorf("media dir has %d entries, want 1 (temp file left behind?)", len(entries))
	}

	if ok, err := s.Exists(ctx, "media/cat.png"); !ok || err != nil {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "media/cat.png"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "media/cat.png"); ok {
		t.Error("blob still exists after Delete")
	}
	if err := s.Delete(ctx, "media/cat.png"); err != nil {
		t.Errorf("Delete() of a missing blob = %v", err)
	}
}

func TestLocalStore_KeysStayUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"media/a.png", filepath.Join(root, "media", "a.png")},
		{"../../etc/passwd", filepath.Join(root, "etc", "passwd")},
		{`media\win.png`, filepath.Join(root, "media", "win.png")},
	}
	for _, tt := range tests {
		got, err := s.fullPath(tt.key)
		if err != nil || got != tt.want {
			t.Errorf("fullPath(%q) = %q, %v; want %q", tt.key, got, err, tt.want)
		}
	}

	for _, bad := range []string{"", "/", ".."} {
		if _, err := s.fullPath(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("fullPath(%q) error = %v, want ErrInvalidKey", bad, err)
		}
	}
}

type fakeS3 struct {
	puts    map[string]string
	types   map[string]string
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.puts[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{puts: map[string]string{}, types: map[string]string{}}
	s := &S3Store{client: fake, bucket: "site"}

	if err := s.Put(ctx, "media/cat.png", strings.NewReader("png")); err != nil {
		t.Fatal(err)
	}
	if got := fake.puts["site/media/cat.png"]; got != "png" {
		t.Errorf("stored %q", got)
	}
	if got := fake.types["site/media/cat.png"]; got != "image/png" {
		t.Errorf("content type = %q, want image/png", got)
	}

	if err := s.Delete(ctx, "/media/cat.png"); err != nil {
		t.Fatal(err)
	}
	if len(fake.deletes) != 1 || fake.deletes[0] != "site/media/cat.png" {
		t.Errorf("deletes = %v", fake.deletes)
	}

	fake.err = errors.New("access denied")
	if err := s.Put(ctx, "media/x.jpg", strings.NewReader("")); err == nil || !strings.Contains(err.Error(), "s3://site/media/x.jpg") {
		t.Errorf("Put() error = %v", err)
	}
}
