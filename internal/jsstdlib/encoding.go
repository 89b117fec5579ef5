package jsstdlib

import "jsrt/internal/core"

// SetupEncoding installs atob/btoa, TextEncoder/TextDecoder, and
// structuredClone (§6.2) as pure JS, so they work identically on both
// the QuickJS and V8 engine backends without any native binding.
//
// Grounded directly on the teacher's encodingJS (cryguy-worker/
// encoding.go): same base64 alphabet/table-building approach for atob/
// btoa, carried over verbatim since neither engine binding exposes a
// native base64 codec. TextEncoder/TextDecoder and structuredClone are
// additions the teacher's Worker environment gets from V8 built-ins
// directly; QuickJS has no equivalent, so this repo provides its own.
func SetupEncoding(rt core.JSRuntime) error {
	return rt.Eval(encodingJS)
}

const encodingJS = `
(function() {
	const _e = 'ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/';
	const _d = new Uint8Array(128);
	for (let i = 0; i < _e.length; i++) _d[_e.charCodeAt(i)] = i;
	const _v = new Uint8Array(128);
	for (let i = 0; i < _e.length; i++) _v[_e.charCodeAt(i)] = 1;
	_v[61] = 1; // '='

	globalThis.btoa = function(data) {
		if (arguments.length < 1) throw new TypeError("btoa requires at least 1 argument(s)");
		const s = String(data);
		const len = s.length;
		if (len === 0) return '';
		const bytes = new Uint8Array(len);
		for (let i = 0; i < len; i++) {
			const ch = s.charCodeAt(i);
			if (ch > 255) throw new Error("btoa: string contains characters outside of the Latin1 range");
			bytes[i] = ch;
		}
		const out = [];
		for (let i = 0; i < len; i += 3) {
			const a = bytes[i];
			const b = i + 1 < len ? bytes[i + 1] : 0;
			const c = i + 2 < len ? bytes[i + 2] : 0;
			out.push(
				_e[a >> 2],
				_e[((a & 3) << 4) | (b >> 4)],
				i + 1 < len ? _e[((b & 15) << 2) | (c >> 6)] : '=',
				i + 2 < len ? _e[c & 63] : '='
			);
		}
		return out.join('');
	};

	globalThis.atob = function(data) {
		if (arguments.length < 1) throw new TypeError("atob requires at least 1 argument(s)");
		let b64 = String(data);
		b64 = b64.replace(/[\t\n\f\r ]/g, '');
		if (b64.length === 0) return '';
		if (b64.length % 4 === 0) {
			if (b64[b64.length - 1] === '=') {
				b64 = b64.slice(0, b64[b64.length - 2] === '=' ? -2 : -1);
			}
		}
		if (b64.length % 4 === 1) {
			throw new Error("atob: invalid base64 string");
		}
		for (let i = 0; i < b64.length; i++) {
			const ch = b64.charCodeAt(i);
			if (ch >= 128 || !_v[ch] || ch === 61) {
				throw new Error("atob: invalid base64 string");
			}
		}
		while (b64.length % 4 !== 0) b64 += '=';
		let pad = 0;
		if (b64[b64.length - 1] === '=') pad++;
		if (b64[b64.length - 2] === '=') pad++;
		const outLen = (b64.length / 4) * 3 - pad;
		const bytes = new Uint8Array(outLen);
		let j = 0;
		for (let i = 0; i < b64.length; i += 4) {
			const a = _d[b64.charCodeAt(i)];
			const b = _d[b64.charCodeAt(i + 1)];
			const c = _d[b64.charCodeAt(i + 2)];
			const d = _d[b64.charCodeAt(i + 3)];
			bytes[j++] = (a << 2) | (b >> 4);
			if (j < outLen) bytes[j++] = ((b & 15) << 4) | (c >> 2);
			if (j < outLen) bytes[j++] = ((c & 3) << 6) | d;
		}
		const CHUNK = 4096;
		let result = '';
		for (let i = 0; i < outLen; i += CHUNK) {
			const end = Math.min(i + CHUNK, outLen);
			result += String.fromCharCode.apply(null, bytes.subarray(i, end));
		}
		return result;
	};

	function TextEncoder() {}
	TextEncoder.prototype.encoding = 'utf-8';
	TextEncoder.prototype.encode = function(input) {
		input = input === undefined ? '' : String(input);
		const out = [];
		for (let i = 0; i < input.length; i++) {
			let code = input.charCodeAt(i);
			if (code >= 0xD800 && code <= 0xDBFF && i + 1 < input.length) {
				const next = input.charCodeAt(i + 1);
				if (next >= 0xDC00 && next <= 0xDFFF) {
					code = 0x10000 + (code - 0xD800) * 0x400 + (next - 0xDC00);
					i++;
				}
			}
			if (code < 0x80) {
				out.push(code);
			} else if (code < 0x800) {
				out.push(0xC0 | (code >> 6), 0x80 | (code & 0x3F));
			} else if (code < 0x10000) {
				out.push(0xE0 | (code >> 12), 0x80 | ((code >> 6) & 0x3F), 0x80 | (code & 0x3F));
			} else {
				out.push(
					0xF0 | (code >> 18),
					0x80 | ((code >> 12) & 0x3F),
					0x80 | ((code >> 6) & 0x3F),
					0x80 | (code & 0x3F)
				);
			}
		}
		return new Uint8Array(out);
	};
	globalThis.TextEncoder = TextEncoder;

	function TextDecoder(label) {
		this.encoding = label || 'utf-8';
	}
	TextDecoder.prototype.decode = function(input) {
		if (!input) return '';
		const bytes = input instanceof Uint8Array ? input : new Uint8Array(input);
		let result = '';
		let i = 0;
		while (i < bytes.length) {
			const b0 = bytes[i];
			let code, len;
			if (b0 < 0x80) { code = b0; len = 1; }
			else if ((b0 & 0xE0) === 0xC0) { code = b0 & 0x1F; len = 2; }
			else if ((b0 & 0xF0) === 0xE0) { code = b0 & 0x0F; len = 3; }
			else if ((b0 & 0xF8) === 0xF0) { code = b0 & 0x07; len = 4; }
			else { result += '�'; i++; continue; }
			if (i + len > bytes.length) { result += '�'; break; }
			for (let k = 1; k < len; k++) code = (code << 6) | (bytes[i + k] & 0x3F);
			i += len;
			if (code < 0x10000) {
				result += String.fromCharCode(code);
			} else {
				code -= 0x10000;
				result += String.fromCharCode(0xD800 + (code >> 10), 0xDC00 + (code & 0x3FF));
			}
		}
		return result;
	};
	globalThis.TextDecoder = TextDecoder;

	// structuredClone: a JSON-roundtrip approximation. Matches the
	// platform API for the common case (plain objects/arrays/primitives,
	// Uint8Array via a tagged shape); it does not preserve cycles, Map/Set,
	// or function values, which is an accepted gap for this runtime's scope.
	globalThis.structuredClone = function(value) {
		return JSON.parse(JSON.stringify(value, function(key, v) {
			if (v instanceof Uint8Array) return { __typedarray__: 'Uint8Array', data: Array.from(v) };
			return v;
		}), function(key, v) {
			if (v && v.__typedarray__ === 'Uint8Array') return new Uint8Array(v.data);
			return v;
		});
	};
})();
`
