package formula

import "sync"

// Cache holds compiled programs keyed by formula source. Tool
// configurations are static, so each distinct formula is parsed once.
type Cache struct {
	programs sync.Map // string -> *Program
}

// NewCache returns an empty program cache.
func NewCache() *Cache {
	return &Cache{}
}

// Program returns the compiled program for src, compiling it on first use.
func (c *Cache) Program(src string) *Program {
	if cached, ok := c.programs.Load(src); ok {
		return cached.(*Program)
	}
	prog, _ := c.programs.LoadOrStore(src, Compile(src))
	return prog.(*Program)
}

// Evaluate has the same contract as the package-level Evaluate.
func (c *Cache) Evaluate(src string, vars Env) (result float64) {
	defer func() {
		if recover() != nil {
			result = 0
		}
	}()
	return c.Program(src).Eval(vars)
}

// Len reports how many programs are cached.
func (c *Cache) Len() int {
	n := 0
	c.programs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
