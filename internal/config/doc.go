// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. Both the
// request-serving process and the worker process read the same Config;
// each uses the sections it needs.
package config
