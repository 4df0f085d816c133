package objects

import (
	"slices"
)

// ResourceInfo describes resource saved while processing chapters.
type ResourceInfo struct {
	Key      string `json:"key"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Location string `json:"location"`
}

// ResourceSet maps resource keys ("embed:0004", "flow:2", "recindex:3", "cover")
// to saved resources. Every resource is saved once per book.
type ResourceSet map[string]*ResourceInfo

func NewResourceSet() ResourceSet {
	return make(ResourceSet)
}

func (rs ResourceSet) Find(key string) *ResourceInfo {
	if len(key) == 0 {
		return nil
	}
	if info, exists := rs[key]; exists {
		return info
	}
	return nil
}

func (rs ResourceSet) Add(key string, ri *ResourceInfo) {
	if len(key) != 0 {
		rs[key] = ri
	}
}

func (rs ResourceSet) Delete(key string) {
	if len(key) != 0 {
		delete(rs, key)
	}
}

func (rs ResourceSet) SubsetByFunc(f func(key string, ri *ResourceInfo) bool) ResourceSet {
	nrs := make(ResourceSet)
	for k, v := range rs {
		if f(k, v) {
			nrs[k] = v
		}
	}
	return nrs
}

// Keys returns sorted keys of the set.
func (rs ResourceSet) Keys() []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Size returns total size of all resources in the set.
func (rs ResourceSet) Size() (total int64) {
	for _, v := range rs {
		total += v.Size
	}
	return
}
