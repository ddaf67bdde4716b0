package internal

import (
	"net/http"

	"feedsync/internal/controllers"
	"feedsync/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/timeline", http.HandlerFunc(apiController.GetTimeline))
	routers.Post("/timeline/refresh", http.HandlerFunc(apiController.RefreshTimeline))
	routers.Post("/timeline/next", http.HandlerFunc(apiController.NextTimelinePage))
	routers.Get("/timeline/collapsed", http.HandlerFunc(apiController.GetCollapsed))
	routers.Post("/timeline/collapse", http.HandlerFunc(apiController.ToggleCollapse))

	routers.Get("/notifications", http.HandlerFunc(apiController.GetNotifications))
	routers.Post("/notifications/refresh", http.HandlerFunc(apiController.RefreshNotifications))
	routers.Post("/notifications/next", http.HandlerFunc(apiController.NextNotificationsPage))
	routers.Get("/notifications/metrics", http.HandlerFunc(apiController.GetNotificationMetrics))
	return routers
}
