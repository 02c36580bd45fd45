package services

// Services defined in this package:
// - StudentService: roster CRUD including photo storage
// - AuthService: registration, login and password reset
