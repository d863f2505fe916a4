package document

import "github.com/groundstation/factsys/jsonptr"

// PatchOp is a JSON Patch (RFC 6902) operation name.
type PatchOp string

const (
	PatchOpAdd     PatchOp = "add"
	PatchOpRemove  PatchOp = "remove"
	PatchOpReplace PatchOp = "replace"
)

// JSONPatch is one recorded change to a document.
type JSONPatch struct {
	Op    PatchOp `json:"op"`
	Path  string  `json:"path"`
	Value any     `json:"value,omitempty"`
}

// JSONPatchSet is the ordered list of changes made to a layer since it was
// last loaded or saved.
type JSONPatchSet []JSONPatch

// Add records an "add" operation.
func (ps *JSONPatchSet) Add(path string, value any) {
	*ps = append(*ps, JSONPatch{Op: PatchOpAdd, Path: path, Value: value})
}

// Replace records a "replace" operation.
func (ps *JSONPatchSet) Replace(path string, value any) {
	*ps = append(*ps, JSONPatch{Op: PatchOpReplace, Path: path, Value: value})
}

// Remove records a "remove" operation.
func (ps *JSONPatchSet) Remove(path string) {
	*ps = append(*ps, JSONPatch{Op: PatchOpRemove, Path: path})
}

// IsEmpty reports whether the set holds no operations.
func (ps JSONPatchSet) IsEmpty() bool {
	return len(ps) == 0
}

// ApplyTo replays the set onto a decoded map. Malformed paths are ignored.
func (ps JSONPatchSet) ApplyTo(data map[string]any) {
	for _, p := range ps {
		switch p.Op {
		case PatchOpAdd, PatchOpReplace:
			jsonptr.SetPath(data, p.Path, p.Value)
		case PatchOpRemove:
			jsonptr.DeletePath(data, p.Path)
		}
	}
}
