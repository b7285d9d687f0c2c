package sandbox

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOM is the realm's render surface. Admitted code never sees it directly;
// it is populated through the stage API and rendered for the host.
type DOM struct {
	root    *Element
	changes []DOMChange
	nextID  int
	mu      sync.RWMutex
}

// Element represents a surface element
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string
	Children    []*Element
	Parent      *Element

	// Canvas is set on canvas elements only.
	Canvas *Canvas
}

// DrawOp is one recorded 2D context call
type DrawOp struct {
	Name  string    `json:"name"`
	Args  []float64 `json:"args,omitempty"`
	Text  string    `json:"text,omitempty"`
	Style string    `json:"style,omitempty"`
}

// Canvas records what the admitted code drew.
type Canvas struct {
	Width  int
	Height int

	mu  sync.Mutex
	ops []DrawOp
}

// Ops returns a snapshot of recorded operations.
func (c *Canvas) Ops() []DrawOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DrawOp(nil), c.ops...)
}

func (c *Canvas) record(op DrawOp) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
}

// RootID is the id of the surface root element.
const RootID = "stage-root"

// NewDOM creates an empty surface
func NewDOM() *DOM {
	return &DOM{
		root: &Element{
			TagName:    "div",
			ID:         RootID,
			Attributes: make(map[string]string),
			Children:   []*Element{},
		},
		changes: []DOMChange{},
	}
}

// CreateCanvas appends a canvas to the surface root.
func (d *DOM) CreateCanvas(width, height int) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	elem := &Element{
		TagName:    "canvas",
		ID:         fmt.Sprintf("canvas-%d", d.nextID),
		Attributes: map[string]string{},
		Children:   []*Element{},
		Canvas:     &Canvas{Width: width, Height: height},
	}
	d.root.AddElement(elem)
	d.changes = append(d.changes, DOMChange{
		Type:     "append",
		Selector: "#" + RootID,
		Property: "canvas",
		Value:    elem.ID,
	})
	return elem
}

// Query finds elements by selector (#id, .class or tag)
func (d *DOM) Query(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if strings.HasPrefix(selector, "#") {
		id := strings.TrimPrefix(selector, "#")
		if elem := d.findByID(d.root, id); elem != nil {
			return []*Element{elem}
		}
	} else if strings.HasPrefix(selector, ".") {
		class := strings.TrimPrefix(selector, ".")
		return d.findByClass(d.root, class)
	} else {
		return d.findByTag(d.root, selector)
	}

	return []*Element{}
}

// Canvases returns every canvas in document order.
func (d *DOM) Canvases() []*Element {
	return d.Query("canvas")
}

// Changes returns accumulated surface changes
func (d *DOM) Changes() []DOMChange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DOMChange{}, d.changes...)
}

// SetData sets data-<key> on elem and records the change.
func (d *DOM) SetData(elem *Element, key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	elem.SetAttribute("data-"+key, value)
	d.changes = append(d.changes, DOMChange{
		Type:     "set_attribute",
		Selector: "#" + elem.ID,
		Property: "data-" + key,
		Value:    value,
	})
}

// Render serializes the surface as an HTML fragment.
func (d *DOM) Render() (string, error) {
	d.mu.RLock()
	node := toNode(d.root)
	d.mu.RUnlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", fmt.Errorf("render surface: %w", err)
	}
	return buf.String(), nil
}

func toNode(e *Element) *html.Node {
	tag := strings.ToLower(e.TagName)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}

	if e.ID != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: e.ID})
	}
	if e.ClassName != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: e.ClassName})
	}
	if e.Canvas != nil {
		n.Attr = append(n.Attr,
			html.Attribute{Key: "width", Val: strconv.Itoa(e.Canvas.Width)},
			html.Attribute{Key: "height", Val: strconv.Itoa(e.Canvas.Height)},
			html.Attribute{Key: "data-ops", Val: strconv.Itoa(len(e.Canvas.Ops()))},
		)
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: e.Attributes[k]})
	}

	if e.TextContent != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: e.TextContent})
	}
	for _, child := range e.Children {
		n.AppendChild(toNode(child))
	}
	return n
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// SetAttribute sets attribute value
func (e *Element) SetAttribute(name, value string) {
	e.Attributes[name] = value
}

func (d *DOM) findByID(elem *Element, id string) *Element {
	if elem.ID == id {
		return elem
	}
	for _, child := range elem.Children {
		if found := d.findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func (d *DOM) findByClass(elem *Element, class string) []*Element {
	var result []*Element
	for _, c := range strings.Fields(elem.ClassName) {
		if c == class {
			result = append(result, elem)
			break
		}
	}
	for _, child := range elem.Children {
		result = append(result, d.findByClass(child, class)...)
	}
	return result
}

func (d *DOM) findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	if strings.EqualFold(elem.TagName, tag) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, d.findByTag(child, tag)...)
	}
	return result
}

// AddElement adds a child element
func (e *Element) AddElement(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// Remove removes element from parent
func (e *Element) Remove() {
	if e.Parent == nil {
		return
	}
	children := e.Parent.Children[:0]
	for _, child := range e.Parent.Children {
		if child != e {
			children = append(children, child)
		}
	}
	e.Parent.Children = children
	e.Parent = nil
}
