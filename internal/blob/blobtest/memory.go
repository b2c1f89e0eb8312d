// Package blobtest provides an in-memory blob.Store for tests: deterministic
// timestamps, scripted put failures, and call counting for retry assertions.
package blobtest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/blob"
)

// ErrInjected is returned by operations that were scripted to fail.
var ErrInjected = errors.New("blobtest: injected failure")

const baseURL = "https://blobtest.invalid/store"

type storedObject struct {
	body       []byte
	uploadedAt time.Time
}

// Memory is an in-memory Store. The zero value is not usable; call New.
type Memory struct {
	mutex   sync.Mutex
	objects map[string]storedObject
	now     time.Time
	counter int

	// PutFailures makes the next N Put calls fail.
	PutFailures int
	// FailAllPuts makes every Put call fail.
	FailAllPuts bool
	// FailList makes List fail.
	FailList bool
	// PutCalls counts Put invocations, including failed ones.
	PutCalls int
}

// New constructs an empty Memory store with a fixed starting clock.
func New() *Memory {
	return &Memory{
		objects: make(map[string]storedObject),
		now:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// PutAt seeds an object with an explicit upload time, bypassing failure
// scripting. The pathname is stored verbatim.
func (m *Memory) PutAt(pathname string, body []byte, uploadedAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.objects[pathname] = storedObject{body: append([]byte(nil), body...), uploadedAt: uploadedAt}
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.objects)
}

// Put implements blob.Store.
func (m *Memory) Put(_ context.Context, pathname string, body []byte, opts blob.PutOptions) (blob.Object, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.PutCalls++
	if m.FailAllPuts {
		return blob.Object{}, ErrInjected
	}
	if m.PutFailures > 0 {
		m.PutFailures--
		return blob.Object{}, ErrInjected
	}

	name := pathname
	if opts.AddRandomSuffix {
		extension := path.Ext(pathname)
		m.counter++
		name = fmt.Sprintf("%s-%06d%s", strings.TrimSuffix(pathname, extension), m.counter, extension)
	}

	m.now = m.now.Add(time.Second)
	m.objects[name] = storedObject{body: append([]byte(nil), body...), uploadedAt: m.now}
	return blob.Object{Pathname: name, URL: baseURL + "/" + name, UploadedAt: m.now}, nil
}

// List implements blob.Store.
func (m *Memory) List(_ context.Context, prefix string, limit int) ([]blob.Object, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.FailList {
		return nil, ErrInjected
	}

	var objects []blob.Object
	for name, object := range m.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		objects = append(objects, blob.Object{
			Pathname:   name,
			URL:        baseURL + "/" + name,
			UploadedAt: object.uploadedAt,
		})
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}

// Get implements blob.Store.
func (m *Memory) Get(_ context.Context, pathname string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	object, ok := m.objects[pathname]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return append([]byte(nil), object.body...), nil
}

// Delete implements blob.Store.
func (m *Memory) Delete(_ context.Context, pathname string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.objects[pathname]; !ok {
		return blob.ErrNotFound
	}
	delete(m.objects, pathname)
	return nil
}

// BaseURL implements blob.Store.
func (m *Memory) BaseURL() string {
	return baseURL
}
