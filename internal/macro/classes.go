package macro

import "strings"

// DefaultClasses are the framework classes that ship with Macroable support.
var DefaultClasses = []string{
	`Illuminate\Auth\RequestGuard`,
	`Illuminate\Auth\SessionGuard`,
	`Illuminate\Cache\Repository`,
	`Illuminate\Console\Command`,
	`Illuminate\Console\Scheduling\Event`,
	`Illuminate\Database\Grammar`,
	`Illuminate\Database\Eloquent\FactoryBuilder`,
	`Illuminate\Database\Eloquent\Relations\Relation`,
	`Illuminate\Database\Query\Builder`,
	`Illuminate\Database\Schema\Blueprint`,
	`Illuminate\Filesystem\Filesystem`,
	`Illuminate\Foundation\Testing\TestResponse`,
	`Illuminate\Http\JsonResponse`,
	`Illuminate\Http\RedirectResponse`,
	`Illuminate\Http\Request`,
	`Illuminate\Http\Response`,
	`Illuminate\Http\UploadedFile`,
	`Illuminate\Mail\Mailer`,
	`Illuminate\Routing\Redirector`,
	`Illuminate\Routing\ResponseFactory`,
	`Illuminate\Routing\Route`,
	`Illuminate\Routing\Router`,
	`Illuminate\Routing\UrlGenerator`,
	`Illuminate\Support\Arr`,
	`Illuminate\Support\Carbon`,
	`Illuminate\Support\Collection`,
	`Illuminate\Support\Optional`,
	`Illuminate\Support\Str`,
	`Illuminate\Translation\Translator`,
	`Illuminate\Validation\Rule`,
	`Illuminate\View\View`,
}

// ClassName is a fully-qualified class name split into namespace and short
// name.
type ClassName struct {
	Namespace string
	Short     string
}

// NormalizeClass trims whitespace and the leading namespace separator.
func NormalizeClass(name string) string {
	return strings.TrimLeft(strings.TrimSpace(name), `\`)
}

// ParseClassName splits a fully-qualified name at its last backslash.
func ParseClassName(fqn string) ClassName {
	fqn = NormalizeClass(fqn)
	i := strings.LastIndex(fqn, `\`)
	if i < 0 {
		return ClassName{Short: fqn}
	}
	return ClassName{Namespace: fqn[:i], Short: fqn[i+1:]}
}

// String returns the fully-qualified name without a leading separator.
func (c ClassName) String() string {
	if c.Namespace == "" {
		return c.Short
	}
	return c.Namespace + `\` + c.Short
}

// MergeClasses concatenates class lists preserving order and dropping
// duplicates and blanks. Class names compare case-insensitively, as PHP does.
func MergeClasses(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, c := range list {
			c = NormalizeClass(c)
			if c == "" {
				continue
			}
			key := strings.ToLower(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}
