package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           beautyd API
// @version         1.0
// @description     HTTP API for ensemble attractiveness scoring with admission control.
//
// @contact.name   beautyd maintainers
// @contact.url    https://github.com/your-org/beautyd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
