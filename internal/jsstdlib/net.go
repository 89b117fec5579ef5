package jsstdlib

import "jsrt/internal/core"

// SetupNet installs the §6.2 "net" surface: net.connect (alias
// net.createConnection) returning a promise<Socket> that resolves once
// the TCP handshake completes (or rejects on connect error), and
// net.createServer returning a Server whose 'connection' listener
// receives accepted Sockets. Both layer entirely on the "net" binding
// table installed by the embedder (process.binding('net')) plus the
// global completion hooks the runtime's dispatch wires up
// (__tcpConnect/__tcpData/__tcpEnd/__tcpWriteDone/__tcpAccept/
// __ioError) — this package only ever touches globalThis, never a Go
// type directly, matching every other piece of the JS-visible stdlib.
func SetupNet(rt core.JSRuntime) error {
	return rt.Eval(netJS)
}

const netJS = `
(function() {
	var binding = null;
	function b() { return binding || (binding = process.binding('net')); }

	var sockets = Object.create(null);   // handle id -> Socket
	var servers = Object.create(null);   // handle id -> Server

	function EventEmitter() {
		this._listeners = Object.create(null);
	}
	EventEmitter.prototype.on = function(name, fn) {
		(this._listeners[name] = this._listeners[name] || []).push(fn);
		return this;
	};
	EventEmitter.prototype.once = function(name, fn) {
		var self = this;
		function wrapper() { self.off(name, wrapper); fn.apply(self, arguments); }
		return this.on(name, wrapper);
	};
	EventEmitter.prototype.off = function(name, fn) {
		var arr = this._listeners[name] || [];
		var idx = arr.indexOf(fn);
		if (idx !== -1) arr.splice(idx, 1);
		return this;
	};
	EventEmitter.prototype.emit = function(name) {
		var args = Array.prototype.slice.call(arguments, 1);
		var arr = this._listeners[name] || [];
		for (var i = 0; i < arr.length; i++) {
			try { arr[i].apply(this, args); } catch (e) { /* listener errors isolated */ }
		}
	};

	function base64ToBytes(s) {
		var bin = atob(s);
		var out = new Uint8Array(bin.length);
		for (var i = 0; i < bin.length; i++) out[i] = bin.charCodeAt(i);
		return out;
	}

	function Socket(id) {
		EventEmitter.call(this);
		this._id = id;
		this.connecting = (id === null);
		this.destroyed = false;
		this._encoding = null;
		this._readBuffer = [];
		this._ended = false;
	}
	Socket.prototype = Object.create(EventEmitter.prototype);

	function decodeChunk(bytes, encoding) {
		return encoding ? (new TextDecoder(encoding)).decode(bytes) : bytes;
	}

	Socket.prototype.write = function(data, cb) {
		var bytes = (typeof data === 'string') ? (new TextEncoder()).encode(data) : data;
		b().write(this._id, bytes);
		if (cb) this.once('__writeDone', cb);
		return true;
	};
	Socket.prototype.end = function(data) {
		if (data !== undefined) this.write(data);
		b().shutdown(this._id);
	};
	Socket.prototype.destroy = function() {
		if (this.destroyed) return;
		this.destroyed = true;
		delete sockets[this._id];
		b().close(this._id);
	};
	Socket.prototype.pause = function() { this._paused = true; };
	Socket.prototype.resume = function() { this._paused = false; };

	// setEncoding makes 'data' events and read() yield decoded strings
	// instead of raw Uint8Array chunks, matching stream.Readable.setEncoding.
	Socket.prototype.setEncoding = function(encoding) {
		this._encoding = encoding || 'utf-8';
		return this;
	};

	// read pulls one buffered chunk (pull-mode complement to the 'data'
	// event's push mode); returns null if nothing is buffered yet.
	Socket.prototype.read = function() {
		if (this._readBuffer.length === 0) return null;
		var bytes = this._readBuffer.shift();
		return decodeChunk(bytes, this._encoding);
	};

	// address mirrors Server.prototype.address: the local endpoint this
	// socket is bound to, once the connection has completed.
	Socket.prototype.address = function() {
		if (!this.localAddress) return {};
		var idx = this.localAddress.lastIndexOf(':');
		var host = idx === -1 ? this.localAddress : this.localAddress.slice(0, idx);
		var port = idx === -1 ? undefined : parseInt(this.localAddress.slice(idx + 1), 10);
		return { address: host, port: port, family: 'IPv4' };
	};

	// Symbol.asyncIterator lets a Socket be consumed with for-await-of,
	// draining buffered reads until 'end' or destruction.
	Socket.prototype[Symbol.asyncIterator] = function() {
		var self = this;
		return {
			next: function() {
				return new Promise(function(resolve, reject) {
					function tryDrain() {
						if (self._readBuffer.length > 0) {
							resolve({ value: decodeChunk(self._readBuffer.shift(), self._encoding), done: false });
							return true;
						}
						return false;
					}
					if (tryDrain()) return;
					if (self._ended || self.destroyed) { resolve({ value: undefined, done: true }); return; }
					function onData() { self.off('data', onData); self.off('end', onEnd); self.off('error', onErr); tryDrain(); }
					function onEnd() { self.off('data', onData); self.off('end', onEnd); self.off('error', onErr); resolve({ value: undefined, done: true }); }
					function onErr(err) { self.off('data', onData); self.off('end', onEnd); self.off('error', onErr); reject(err); }
					self.on('data', onData);
					self.on('end', onEnd);
					self.on('error', onErr);
				});
			}
		};
	};

	globalThis.__tcpConnect = function(id, local, remote) {
		var sock = sockets[id];
		if (!sock) return;
		sock.connecting = false;
		sock.localAddress = local;
		sock.remoteAddress = remote;
		b().readStart(id);
		sock.emit('connect');
	};
	globalThis.__tcpData = function(id, b64) {
		var sock = sockets[id];
		if (!sock) return;
		var bytes = base64ToBytes(b64);
		sock._readBuffer.push(bytes);
		sock.emit('data', decodeChunk(bytes, sock._encoding));
	};
	globalThis.__tcpEnd = function(id) {
		var sock = sockets[id];
		if (!sock) return;
		sock._ended = true;
		sock.emit('end');
	};
	globalThis.__tcpWriteDone = function(id, n) {
		var sock = sockets[id];
		if (!sock) return;
		sock.emit('__writeDone', n);
	};
	var prevIoError = globalThis.__ioError;
	globalThis.__ioError = function(id, message) {
		var sock = sockets[id];
		if (sock) { sock.emit('error', new Error(message)); return; }
		var srv = servers[id];
		if (srv) { srv.emit('error', new Error(message)); return; }
		if (prevIoError) prevIoError(id, message);
	};
	globalThis.__tcpAccept = function(listenerId, connId, remote, remotePort) {
		var srv = servers[listenerId];
		if (!srv) return;
		var sock = new Socket(connId);
		sock.remoteAddress = remote;
		sock.remotePort = remotePort;
		sockets[connId] = sock;
		b().readStart(connId);
		srv.emit('connection', sock);
	};

	// connect resolves promise<Socket> once the handshake completes
	// (§6.2); it rejects if the connection errors before 'connect' fires.
	// cb, if given, is called on success in addition to the resolution,
	// matching Node's connect(port, host, connectListener) convenience form.
	function connect(port, host, cb) {
		if (typeof host === 'function') { cb = host; host = 'localhost'; }
		host = host || 'localhost';
		var id = b().connect(host, port);
		var sock = new Socket(id);
		sockets[id] = sock;
		if (cb) sock.once('connect', cb);
		return new Promise(function(resolve, reject) {
			function onConnect() { sock.off('error', onError); resolve(sock); }
			function onError(err) { sock.off('connect', onConnect); reject(err); }
			sock.once('connect', onConnect);
			sock.once('error', onError);
		});
	}

	function Server(onConnection) {
		EventEmitter.call(this);
		this._id = null;
		if (onConnection) this.on('connection', onConnection);
	}
	Server.prototype = Object.create(EventEmitter.prototype);
	Server.prototype.listen = function(port, host, cb) {
		if (typeof host === 'function') { cb = host; host = '0.0.0.0'; }
		host = host || '0.0.0.0';
		var self = this;
		try {
			var r = b().listen(host, port || 0);
			this._id = r.handleId;
			this.address = function() { return { address: r.host, port: r.port }; };
			servers[this._id] = this;
			if (cb) this.once('listening', cb);
			this.emit('listening');
		} catch (e) {
			this.emit('error', e);
		}
		return this;
	};
	Server.prototype.close = function(cb) {
		if (this._id !== null) { b().close(this._id); delete servers[this._id]; }
		if (cb) cb();
	};

	function createServer(onConnection) { return new Server(onConnection); }

	globalThis.net = {
		connect: connect,
		createConnection: connect,
		createServer: createServer,
	};
})();
`
