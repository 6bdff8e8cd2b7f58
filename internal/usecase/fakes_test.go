package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aegisdb/aegis/internal/domain"
)

// fakeDatabase satisfies domain.Database without shelling out. Dump writes
// dumpContent to the output path; the other calls record what happened.
type fakeDatabase struct {
	mu sync.Mutex

	dumpContent []byte
	dumpErr     error

	// When set, Dump signals dumpStarted and then blocks until dumpRelease
	// closes. Used to hold an attempt open across a concurrent call.
	dumpStarted chan struct{}
	dumpRelease chan struct{}

	restored []string
	created  []string
	dropped  []string

	tableCount    int
	tableCountErr error
	liveRows      int64
}

func (f *fakeDatabase) Dump(_ context.Context, outputPath string, _ domain.BackupType) error {
	if f.dumpStarted != nil {
		f.dumpStarted <- struct{}{}
		<-f.dumpRelease
	}
	if f.dumpErr != nil {
		return f.dumpErr
	}
	return os.WriteFile(outputPath, f.dumpContent, 0o644)
}

func (f *fakeDatabase) Restore(_ context.Context, sqlPath string, database string) error {
	if _, err := os.Stat(sqlPath); err != nil {
		return fmt.Errorf("restore input missing: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, database)
	return nil
}

func (f *fakeDatabase) CreateDatabase(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return nil
}

func (f *fakeDatabase) DropDatabase(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, name)
	return nil
}

func (f *fakeDatabase) TableCount(context.Context, string) (int, error) {
	return f.tableCount, f.tableCountErr
}

func (f *fakeDatabase) LiveRowEstimate(context.Context, string) (int64, error) {
	return f.liveRows, nil
}

func (f *fakeDatabase) Ping(context.Context) error { return nil }

// fakeObjectStore keeps uploaded objects in memory.
type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time

	uploadErr  error
	listErr    error
	failDelete map[string]bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, localPath string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = content
	f.modified[key] = time.Now()
	return nil
}

func (f *fakeObjectStore) Download(_ context.Context, key string, destPath string) error {
	f.mu.Lock()
	content, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("object %s not found", key)
	}
	return os.WriteFile(destPath, content, 0o644)
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	if f.failDelete[key] {
		return fmt.Errorf("delete %s refused", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	delete(f.modified, key)
	return nil
}

func (f *fakeObjectStore) ListObjects(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var objects []domain.ObjectInfo
	for key, content := range f.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, domain.ObjectInfo{
				Key:          key,
				LastModified: f.modified[key],
				Size:         int64(len(content)),
			})
		}
	}
	return objects, nil
}

func (f *fakeObjectStore) put(key string, content []byte, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = content
	f.modified[key] = modified
}

// testLogger collects log lines so tests can assert on warnings.
type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) logf(level, template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+fmt.Sprintf(template, args...))
}

func (l *testLogger) Infof(template string, args ...interface{})  { l.logf("INFO", template, args...) }
func (l *testLogger) Warnf(template string, args ...interface{})  { l.logf("WARN", template, args...) }
func (l *testLogger) Errorf(template string, args ...interface{}) { l.logf("ERROR", template, args...) }

func (l *testLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
