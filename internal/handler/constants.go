// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route constants shared by handlers and the router.
const (
	RouteRoot     = "/"
	RouteLogin    = "/login"
	RouteLogout   = "/logout"
	RouteRegister = "/register"
	RouteContact  = "/contact"
	RouteSitemap  = "/sitemap.xml"
	RouteRobots   = "/robots.txt"

	RouteAdmin         = "/admin"
	RouteAdminQueue    = "/admin/queue"
	RouteAdminUsers    = "/admin/users"
	RouteAdminMessages = "/admin/messages"
	RouteAdminEvents   = "/admin/events"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"
)

// Page sizes.
const (
	QueuePerPage    = 25
	UsersPerPage    = 25
	MessagesPerPage = 20
	EventsPerPage   = 25
)
