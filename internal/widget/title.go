package widget

import "sync"

// Title is a widget's mutable display title. Renderers read the text and
// class set; lifecycle code mutates them. The zero value is usable.
type Title struct {
	mu       sync.Mutex
	text     string
	closable bool
	classes  map[string]struct{}
}

// Text returns the title text.
func (t *Title) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// SetText sets the title text.
func (t *Title) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = text
}

// Closable returns whether the widget shows a close affordance.
func (t *Title) Closable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closable
}

// SetClosable sets whether the widget shows a close affordance.
func (t *Title) SetClosable(closable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closable = closable
}

// AddClass adds a marker class to the title. Adding an existing class is a
// no-op. Renderers map classes to visual markers (e.g. a dirty dot).
func (t *Title) AddClass(class string) {
	if class == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.classes == nil {
		t.classes = make(map[string]struct{})
	}
	t.classes[class] = struct{}{}
}

// RemoveClass removes a marker class from the title.
func (t *Title) RemoveClass(class string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.classes, class)
}

// HasClass returns true if the title carries the given class.
func (t *Title) HasClass(class string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.classes[class]
	return ok
}
