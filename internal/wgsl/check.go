// Package wgsl validates shader stages with naga and remembers the
// result per source text.
package wgsl

import (
	"crypto/sha256"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/cpshadow/internal/cache"
)

// Entry point names every shadow stage must declare.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

type key struct {
	stage cpshadow.Stage
	sum   [sha256.Size]byte
}

type result struct {
	entry string
	err   error
}

var checked = cache.New[key, result](32)

// Check parses, lowers and validates src and returns the entry point
// name of stage. Results are cached by stage and source, so recreating
// a renderer does not validate the same text twice.
func Check(stage cpshadow.Stage, src string) (string, error) {
	k := key{stage: stage, sum: sha256.Sum256([]byte(src))}
	r := checked.GetOrCreate(k, func() result {
		entry, err := check(stage, src)
		return result{entry: entry, err: err}
	})
	return r.entry, r.err
}

// Stats reports cache usage.
func Stats() cache.Stats { return checked.Stats() }

func check(stage cpshadow.Stage, src string) (string, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return "", err
	}
	mod, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return "", err
	}
	verrs, err := naga.Validate(mod)
	if err != nil {
		return "", err
	}
	if len(verrs) > 0 {
		return "", verrs[0]
	}

	want, name := ir.StageVertex, VertexEntry
	if stage == cpshadow.StageFragment {
		want, name = ir.StageFragment, FragmentEntry
	}
	for _, ep := range mod.EntryPoints {
		if ep.Stage == want && ep.Name == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("missing %s entry point %q", stage, name)
}
