// Package resolve locates JavaScript module sources, for the require
// implementation of github.com/dop251/goja_nodejs.
//
// Specifiers follow the node_modules convention. Relative paths are resolved
// against the importing module, and packages are found by walking up the
// directory tree, then searching any configured global folders. A package
// entry point is its "module" field, falling back to "main", then index.js.
//
// Sources using static import and export statements are rewritten into
// CommonJS on load, see [RewriteESM].
package resolve
