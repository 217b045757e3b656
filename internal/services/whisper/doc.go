// Package whisper wraps the speech-to-text engine CLI. Each worker process
// owns one client; calls are serialized through a mutex so the threads of a
// worker share the single model instance the engine keeps warm.
package whisper
