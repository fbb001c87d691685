package resolve

import (
	"regexp"
	"strings"
)

const identifier = `[A-Za-z_$][\w$]*`

var (
	reModuleSyntax       = regexp.MustCompile(`(?m)^[ \t]*(?:import|export)\b`)
	reImportDefaultNamed = regexp.MustCompile(`(?m)^([ \t]*)import\s+(` + identifier + `)\s*,\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"][ \t]*;?`)
	reImportNamed        = regexp.MustCompile(`(?m)^([ \t]*)import\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"][ \t]*;?`)
	reImportNamespace    = regexp.MustCompile(`(?m)^([ \t]*)import\s*\*\s*as\s+(` + identifier + `)\s+from\s*['"]([^'"]+)['"][ \t]*;?`)
	reImportDefault      = regexp.MustCompile(`(?m)^([ \t]*)import\s+(` + identifier + `)\s+from\s*['"]([^'"]+)['"][ \t]*;?`)
	reImportBare         = regexp.MustCompile(`(?m)^([ \t]*)import\s*['"]([^'"]+)['"][ \t]*;?`)
	reExportFrom         = regexp.MustCompile(`(?m)^([ \t]*)export\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"][ \t]*;?`)
	reExportAll          = regexp.MustCompile(`(?m)^([ \t]*)export\s*\*\s*from\s*['"]([^'"]+)['"][ \t]*;?`)
	reExportList         = regexp.MustCompile(`(?m)^([ \t]*)export\s*\{([^}]*)\}[ \t]*;?`)
	reExportDecl         = regexp.MustCompile(`(?m)^([ \t]*)export\s+((?:async\s+)?function\s*\*?|class|const|let|var)\s*(` + identifier + `)`)
	reExportDefault      = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+`)
)

// RewriteESM rewrites the static import and export statements of an ES
// module into CommonJS, so it can be evaluated by a require implementation.
// Sources without module syntax are returned unchanged.
//
// The rewrite is line oriented: statements must start a line. Replacements
// stay on the line they replace, and exported declarations are assigned to
// module.exports after the module body.
func RewriteESM(src string) string {
	if !reModuleSyntax.MatchString(src) {
		return src
	}

	var trailer []string

	src = reImportDefaultNamed.ReplaceAllStringFunc(src, func(m string) string {
		g := reImportDefaultNamed.FindStringSubmatch(m)
		return g[1] + defaultImport(g[2], g[4]) + " " + namedImport(g[3], g[4])
	})
	src = reImportNamed.ReplaceAllStringFunc(src, func(m string) string {
		g := reImportNamed.FindStringSubmatch(m)
		return g[1] + namedImport(g[2], g[3])
	})
	src = reImportNamespace.ReplaceAllString(src, `${1}const ${2} = require('${3}');`)
	src = reImportDefault.ReplaceAllStringFunc(src, func(m string) string {
		g := reImportDefault.FindStringSubmatch(m)
		return g[1] + defaultImport(g[2], g[3])
	})
	src = reImportBare.ReplaceAllString(src, `${1}require('${2}');`)

	src = reExportFrom.ReplaceAllStringFunc(src, func(m string) string {
		g := reExportFrom.FindStringSubmatch(m)
		var b strings.Builder
		b.WriteString(g[1])
		b.WriteString("(function (m) {")
		for _, s := range specifiers(g[2]) {
			b.WriteString(" module.exports." + s.alias + " = m." + s.name + ";")
		}
		b.WriteString(" })(require('" + g[3] + "'));")
		return b.String()
	})
	src = reExportAll.ReplaceAllString(src, `${1}Object.assign(module.exports, require('${2}'));`)
	src = reExportList.ReplaceAllStringFunc(src, func(m string) string {
		g := reExportList.FindStringSubmatch(m)
		for _, s := range specifiers(g[2]) {
			trailer = append(trailer, "module.exports."+s.alias+" = "+s.name+";")
		}
		return g[1]
	})
	src = reExportDecl.ReplaceAllStringFunc(src, func(m string) string {
		g := reExportDecl.FindStringSubmatch(m)
		trailer = append(trailer, "module.exports."+g[3]+" = "+g[3]+";")
		keyword := strings.TrimSpace(g[2])
		if !strings.HasSuffix(keyword, "*") {
			keyword += " "
		}
		return g[1] + keyword + g[3]
	})
	src = reExportDefault.ReplaceAllString(src, `${1}module.exports.default = `)

	if len(trailer) == 0 {
		return src
	}
	return src + "\n" + strings.Join(trailer, "\n") + "\n"
}

type specifier struct {
	name  string
	alias string
}

// specifiers parses "a, b as c" import or export clauses.
func specifiers(list string) []specifier {
	var out []specifier
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 1:
			out = append(out, specifier{name: fields[0], alias: fields[0]})
		case len(fields) == 3 && fields[1] == "as":
			out = append(out, specifier{name: fields[0], alias: fields[2]})
		}
	}
	return out
}

func namedImport(list, from string) string {
	specs := specifiers(list)
	parts := make([]string, len(specs))
	for i, s := range specs {
		if s.name == s.alias {
			parts[i] = s.name
		} else {
			parts[i] = s.name + ": " + s.alias
		}
	}
	return "const { " + strings.Join(parts, ", ") + " } = require('" + from + "');"
}

func defaultImport(name, from string) string {
	return "const " + name + " = require('" + from + "').default || require('" + from + "');"
}
