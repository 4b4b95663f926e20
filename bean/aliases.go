package bean

import (
	"fmt"
	"strings"
	"sync"
)

// aliasRegistry 别名表，支持传递解析与循环检测。
type aliasRegistry struct {
	mu      sync.RWMutex
	aliases map[string]string // alias -> name
}

func newAliasRegistry() *aliasRegistry {
	return &aliasRegistry{aliases: make(map[string]string)}
}

// registerAlias 登记别名。别名指向自身时忽略；
// 形成环或与已有别名冲突时报错。
func (a *aliasRegistry) registerAlias(name, alias string) error {
	if alias == name {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.aliases[alias]; ok && existing != name {
		return fmt.Errorf("bean: 别名 '%s' 已指向 '%s'，无法再指向 '%s'", alias, existing, name)
	}
	if a.hasCycleLocked(name, alias) {
		return fmt.Errorf("bean: 别名 '%s' -> '%s' 构成循环", alias, name)
	}
	a.aliases[alias] = name
	return nil
}

func (a *aliasRegistry) hasCycleLocked(name, alias string) bool {
	for cur, ok := a.aliases[name]; ok; cur, ok = a.aliases[cur] {
		if cur == alias {
			return true
		}
		name = cur
	}
	return false
}

// canonicalName 沿别名链解析到规范名称。
func (a *aliasRegistry) canonicalName(name string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for {
		target, ok := a.aliases[name]
		if !ok {
			return name
		}
		name = target
	}
}

// getAliases 指向给定规范名称的全部别名（含传递别名）。
func (a *aliasRegistry) getAliases(name string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []string
	a.collectAliasesLocked(name, &out)
	return out
}

func (a *aliasRegistry) collectAliasesLocked(name string, out *[]string) {
	for alias, target := range a.aliases {
		if target == name {
			*out = append(*out, alias)
			a.collectAliasesLocked(alias, out)
		}
	}
}

// removeAlias 删除别名。
func (a *aliasRegistry) removeAlias(alias string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.aliases, alias)
}

// isFactoryDereference 名称是否带工厂解引用前缀。
func isFactoryDereference(name string) bool {
	return strings.HasPrefix(name, FactoryBeanPrefix)
}

// transformedBeanName 剥除全部 & 前缀。
func transformedBeanName(name string) string {
	for strings.HasPrefix(name, FactoryBeanPrefix) {
		name = name[len(FactoryBeanPrefix):]
	}
	return name
}
