package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteESM(t *testing.T) {
	t.Parallel()
	for _, tc := range [...]struct {
		name string
		in   string
		want string
	}{
		{
			name: "no module syntax",
			in:   "const importance = 1;\nmodule.exports = importance;\n",
			want: "const importance = 1;\nmodule.exports = importance;\n",
		},
		{
			name: "named imports",
			in:   "import { a, b as c } from './x';\n",
			want: "const { a, b: c } = require('./x');\n",
		},
		{
			name: "default import",
			in:   "import x from \"pkg\"\n",
			want: "const x = require('pkg').default || require('pkg');\n",
		},
		{
			name: "default and named imports",
			in:   "import x, {y} from 'pkg';\n",
			want: "const x = require('pkg').default || require('pkg'); const { y } = require('pkg');\n",
		},
		{
			name: "namespace import",
			in:   "  import * as ns from '../ns';\n",
			want: "  const ns = require('../ns');\n",
		},
		{
			name: "side effect import",
			in:   "import './setup.js';\n",
			want: "require('./setup.js');\n",
		},
		{
			name: "re-export list",
			in:   "export { a, b as c } from './x';\n",
			want: "(function (m) { module.exports.a = m.a; module.exports.c = m.b; })(require('./x'));\n",
		},
		{
			name: "re-export all",
			in:   "export * from './x';\n",
			want: "Object.assign(module.exports, require('./x'));\n",
		},
		{
			name: "export list",
			in:   "const a = 1, b = 2;\nexport { a, b as c };\n",
			want: "const a = 1, b = 2;\n\n\nmodule.exports.a = a;\nmodule.exports.c = b;\n",
		},
		{
			name: "export const",
			in:   "export const x = 1;\n",
			want: "const x = 1;\n\nmodule.exports.x = x;\n",
		},
		{
			name: "export function",
			in:   "export function f() {}\n",
			want: "function f() {}\n\nmodule.exports.f = f;\n",
		},
		{
			name: "export async function",
			in:   "export async function f() {}\n",
			want: "async function f() {}\n\nmodule.exports.f = f;\n",
		},
		{
			name: "export generator",
			in:   "export function* g() {}\n",
			want: "function*g() {}\n\nmodule.exports.g = g;\n",
		},
		{
			name: "export class",
			in:   "export class K {}\n",
			want: "class K {}\n\nmodule.exports.K = K;\n",
		},
		{
			name: "export default",
			in:   "export default 42;\n",
			want: "module.exports.default = 42;\n",
		},
		{
			name: "statement inside string is not rewritten",
			in:   "const s = 'import x from \"y\"';\nexport default s;\n",
			want: "const s = 'import x from \"y\"';\nmodule.exports.default = s;\n",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, RewriteESM(tc.in))
		})
	}
}
