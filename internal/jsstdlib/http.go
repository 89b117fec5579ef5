package jsstdlib

import "jsrt/internal/core"

// SetupHTTP installs the §4.H/§6.2 "http" module: http.request/http.get
// for clients, http.createServer for servers, and the METHODS/
// STATUS_CODES tables. Layers entirely on the "net" JS module (net.go)
// for the transport and on the "http_parser" binding (installed by the
// embedder via process.binding('http_parser')) for incremental
// request/response parsing — this file only ever touches globalThis and
// the objects net.go already defines, never a Go type directly.
//
// Must be installed after SetupNet and SetupEncoding: it constructs
// Socket instances through net.connect/net.createServer and encodes
// strings with TextEncoder, both of which must already exist on
// globalThis.
func SetupHTTP(rt core.JSRuntime) error {
	return rt.Eval(httpJS)
}

const httpJS = `
(function() {
	var parserBinding = null;
	function pb() { return parserBinding || (parserBinding = process.binding('http_parser')); }

	var METHODS = ['GET', 'HEAD', 'POST', 'PUT', 'DELETE', 'CONNECT', 'OPTIONS', 'TRACE', 'PATCH'];

	var STATUS_CODES = {
		100: 'Continue', 101: 'Switching Protocols',
		200: 'OK', 201: 'Created', 202: 'Accepted', 204: 'No Content',
		301: 'Moved Permanently', 302: 'Found', 303: 'See Other', 304: 'Not Modified', 307: 'Temporary Redirect', 308: 'Permanent Redirect',
		400: 'Bad Request', 401: 'Unauthorized', 403: 'Forbidden', 404: 'Not Found', 405: 'Method Not Allowed',
		408: 'Request Timeout', 409: 'Conflict', 410: 'Gone', 411: 'Length Required', 413: 'Payload Too Large',
		414: 'URI Too Long', 415: 'Unsupported Media Type', 429: 'Too Many Requests',
		500: 'Internal Server Error', 501: 'Not Implemented', 502: 'Bad Gateway', 503: 'Service Unavailable', 504: 'Gateway Timeout'
	};

	// pending: handle id (from http_parser binding) -> { emitter, kind }
	var pending = Object.create(null);

	globalThis.__httpParserHeaders = function(id, headers) {
		var p = pending[id];
		if (!p) return;
		p.onHeaders(headers);
	};
	globalThis.__httpParserBody = function(id, b64) {
		var p = pending[id];
		if (!p) return;
		var bin = atob(b64);
		var bytes = new Uint8Array(bin.length);
		for (var i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
		p.onBody(bytes);
	};
	globalThis.__httpParserEnd = function(id) {
		var p = pending[id];
		if (!p) return;
		delete pending[id];
		p.onEnd();
	};
	globalThis.__httpParserError = function(id, message) {
		var p = pending[id];
		if (!p) return;
		delete pending[id];
		p.onError(new Error(message));
	};

	function EventEmitter() { this._listeners = Object.create(null); }
	EventEmitter.prototype.on = function(name, fn) {
		(this._listeners[name] = this._listeners[name] || []).push(fn);
		return this;
	};
	EventEmitter.prototype.emit = function(name) {
		var args = Array.prototype.slice.call(arguments, 1);
		var arr = this._listeners[name] || [];
		for (var i = 0; i < arr.length; i++) {
			try { arr[i].apply(this, args); } catch (e) { /* listener errors isolated */ }
		}
	};

	function IncomingMessage() {
		EventEmitter.call(this);
		this.headers = {};
		this.method = undefined;
		this.url = undefined;
		this.statusCode = undefined;
		this.statusMessage = undefined;
		this.httpVersion = undefined;
	}
	IncomingMessage.prototype = Object.create(EventEmitter.prototype);

	function lowerHeaders(h) {
		var out = {};
		for (var k in (h || {})) out[k.toLowerCase()] = h[k];
		return out;
	}

	function attachParser(socket, parserID, msg) {
		pending[parserID] = {
			onHeaders: function(headers) {
				msg.method = headers.Method || undefined;
				msg.url = headers.URL || undefined;
				msg.statusCode = headers.StatusCode || undefined;
				msg.statusMessage = headers.StatusText || undefined;
				msg.httpVersion = (headers.Proto || '').replace(/^HTTP\\//, '');
				msg.headers = lowerHeaders(headers.Header);
				msg.emit('__headers');
			},
			onBody: function(bytes) { msg.emit('data', bytes); },
			onEnd: function() { msg.emit('end'); },
			onError: function(err) { msg.emit('error', err); }
		};
		socket.on('data', function(bytes) {
			var bin = '';
			for (var i = 0; i < bytes.length; i++) bin += String.fromCharCode(bytes[i]);
			pb().feed(parserID, btoa(bin));
		});
		socket.on('end', function() { pb().closeFeed(parserID); });
	}

	function ServerResponse(socket) {
		EventEmitter.call(this);
		this.socket = socket;
		this.statusCode = 200;
		this.statusMessage = undefined;
		this.headersSent = false;
		this._headers = {};
	}
	ServerResponse.prototype = Object.create(EventEmitter.prototype);

	ServerResponse.prototype.setHeader = function(name, value) {
		this._headers[name.toLowerCase()] = value;
		return this;
	};
	ServerResponse.prototype.getHeader = function(name) {
		return this._headers[name.toLowerCase()];
	};
	ServerResponse.prototype.removeHeader = function(name) {
		delete this._headers[name.toLowerCase()];
	};

	// writeHead supports all four overloads: (code), (code, headers),
	// (code, message), (code, message, headers).
	ServerResponse.prototype.writeHead = function(statusCode, arg2, arg3) {
		this.statusCode = statusCode;
		var message, headers;
		if (typeof arg2 === 'string') {
			message = arg2;
			headers = arg3;
		} else {
			headers = arg2;
		}
		this.statusMessage = message || STATUS_CODES[statusCode] || '';
		if (headers) {
			for (var k in headers) this.setHeader(k, headers[k]);
		}
		this._flushHead();
		return this;
	};

	ServerResponse.prototype._flushHead = function() {
		if (this.headersSent) return;
		this.headersSent = true;
		var lines = ['HTTP/1.1 ' + this.statusCode + ' ' + (this.statusMessage || STATUS_CODES[this.statusCode] || '')];
		for (var k in this._headers) lines.push(k + ': ' + this._headers[k]);
		lines.push('', '');
		this.socket.write(lines.join('\\r\\n'));
	};

	ServerResponse.prototype.write = function(chunk) {
		if (!this.headersSent) this._flushHead();
		this.socket.write(chunk);
		return true;
	};
	ServerResponse.prototype.end = function(chunk) {
		if (!this.headersSent) this._flushHead();
		if (chunk !== undefined) this.socket.write(chunk);
		this.socket.end();
	};

	function Server(onRequest) {
		EventEmitter.call(this);
		this._net = net.createServer(function(socket) {
			var msg = new IncomingMessage();
			var parserID = pb().newRequestParser(socket._id);
			attachParser(socket, parserID, msg);
			msg.on('__headers', function() {
				var res = new ServerResponse(socket);
				if (onRequest) onRequest(msg, res);
			});
		});
		this._net.on('error', (function(self) { return function(err) { self.emit('error', err); }; })(this));
		this._net.on('listening', (function(self) { return function() { self.emit('listening'); }; })(this));
	}
	Server.prototype = Object.create(EventEmitter.prototype);
	Server.prototype.listen = function(port, host, cb) {
		this._net.listen(port, host, cb);
		return this;
	};
	Server.prototype.close = function(cb) { this._net.close(cb); };
	Server.prototype.address = function() { return this._net.address ? this._net.address() : undefined; };

	function createServer(onRequest) { return new Server(onRequest); }

	function parseURL(u) {
		var m = /^(https?):\\/\\/([^\\/:]+)(?::(\\d+))?(\\/.*)?$/.exec(u);
		if (!m) throw new Error('invalid URL: ' + u);
		return { protocol: m[1], hostname: m[2], port: m[3] ? parseInt(m[3], 10) : (m[1] === 'https' ? 443 : 80), path: m[4] || '/' };
	}

	// Response wraps a completed IncomingMessage with the fetch-flavored
	// shape §6.2/Scenario S4 requires (response.status, await
	// response.json()/.text()) instead of Node's ClientRequest/
	// IncomingMessage event pair, since request()/get() resolve a single
	// Promise rather than emitting 'response'.
	function Response(msg, chunks) {
		this.status = msg.statusCode;
		this.statusText = msg.statusMessage || STATUS_CODES[msg.statusCode] || '';
		this.headers = msg.headers;
		this.ok = msg.statusCode >= 200 && msg.statusCode < 300;
		this._chunks = chunks;
	}
	Response.prototype._bytes = function() {
		var total = 0;
		for (var i = 0; i < this._chunks.length; i++) total += this._chunks[i].length;
		var out = new Uint8Array(total);
		var off = 0;
		for (var i = 0; i < this._chunks.length; i++) { out.set(this._chunks[i], off); off += this._chunks[i].length; }
		return out;
	};
	Response.prototype.text = function() {
		var self = this;
		return Promise.resolve().then(function() { return (new TextDecoder()).decode(self._bytes()); });
	};
	Response.prototype.json = function() {
		return this.text().then(function(s) { return JSON.parse(s); });
	};
	Response.prototype.arrayBuffer = function() {
		var self = this;
		return Promise.resolve().then(function() { return self._bytes().buffer; });
	};

	// request issues an HTTP/1.1 client request and resolves a Promise<Response>
	// (§4.H, §6.2). options.body may be a string or Uint8Array; options.timeout
	// is a millisecond deadline after which the Promise rejects and the
	// underlying socket is destroyed; options.throwOnError rejects on any
	// non-2xx status instead of resolving; options.signal is an AbortSignal
	// that cancels the in-flight request the same way a timeout does.
	function request(urlOrOptions, options) {
		var opts;
		if (typeof urlOrOptions === 'string') {
			opts = parseURL(urlOrOptions);
			if (options) for (var k in options) opts[k] = options[k];
		} else {
			opts = urlOrOptions || {};
		}
		opts.method = opts.method || 'GET';
		opts.path = opts.path || '/';

		return new Promise(function(resolve, reject) {
			var settled = false;
			var socket = null;
			var timer = null;

			function fail(err) {
				if (settled) return;
				settled = true;
				if (timer) clearTimeout(timer);
				if (socket) socket.destroy();
				reject(err);
			}
			function succeed(response) {
				if (settled) return;
				settled = true;
				if (timer) clearTimeout(timer);
				if (opts.throwOnError && !response.ok) {
					reject(new Error('http request failed with status ' + response.status));
					return;
				}
				resolve(response);
			}

			if (opts.signal) {
				if (opts.signal.aborted) { fail(opts.signal.reason || new Error('request aborted')); return; }
				opts.signal.addEventListener('abort', function() {
					fail(opts.signal.reason || new Error('request aborted'));
				});
			}
			if (opts.timeout) {
				timer = setTimeout(function() { fail(new Error('request timed out after ' + opts.timeout + 'ms')); }, opts.timeout);
			}

			net.connect(opts.port, opts.hostname).then(function(sock) {
				if (settled) { sock.destroy(); return; }
				socket = sock;
				socket.on('error', fail);

				var lines = [opts.method + ' ' + opts.path + ' HTTP/1.1', 'Host: ' + opts.hostname];
				var headers = opts.headers || {};
				var body = opts.body;
				var bodyBytes = body === undefined ? new Uint8Array(0) :
					(typeof body === 'string' ? (new TextEncoder()).encode(body) : body);
				if (bodyBytes.length && !headers['Content-Length'] && !headers['content-length']) {
					headers['Content-Length'] = bodyBytes.length;
				}
				for (var k in headers) lines.push(k + ': ' + headers[k]);
				lines.push('', '');
				socket.write(lines.join('\\r\\n'));
				if (bodyBytes.length) socket.write(bodyBytes);

				var msg = new IncomingMessage();
				var chunks = [];
				var parserID = pb().newResponseParser(socket._id, opts.method, opts.protocol + '://' + opts.hostname + opts.path);
				attachParser(socket, parserID, msg);
				msg.on('data', function(bytes) { chunks.push(bytes); });
				msg.on('end', function() { succeed(new Response(msg, chunks)); });
				msg.on('error', fail);
			}, fail);
		});
	}

	function get(urlOrOptions, options) {
		return request(urlOrOptions, options);
	}

	globalThis.http = {
		METHODS: METHODS,
		STATUS_CODES: STATUS_CODES,
		request: request,
		get: get,
		createServer: createServer,
		IncomingMessage: IncomingMessage,
		ServerResponse: ServerResponse,
		Response: Response,
	};
})();
`
