package main

const (
	flagUser     = "user"
	flagPassword = "password"
	flagCompany  = "company"
	flagRole     = "role"
	flagAllRoles = "all-roles"
	flagAdmin    = "admin"
	flagManager  = "manager"
)
