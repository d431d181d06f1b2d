package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           autoedit API
// @version         1.0
// @description     HTTP API for two-stage instruction-driven image editing.
//
// @contact.name   autoedit maintainers
// @contact.url    https://github.com/your-org/autoedit
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
