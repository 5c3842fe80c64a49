package main

// General API documentation for swaggo. The registered document lives in
// internal/apidocs; build with -tags=swagger to serve the UI at /swagger/.
//
// @title           rasad API
// @version         1.3.0
// @description     Management API for conversational bot projects: files, training jobs and inference endpoints.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
