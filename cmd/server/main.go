package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradenest-backend/internal/auth"
	"tradenest-backend/internal/chat"
	"tradenest-backend/internal/config"
	"tradenest-backend/internal/listing"
	"tradenest-backend/internal/middleware"
	"tradenest-backend/internal/offer"
	"tradenest-backend/internal/store"
	"tradenest-backend/internal/user"
	"tradenest-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// --- Configuration ---
	config.LoadConfig()

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, config.Cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create database connection pool: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Successfully connected to the database!")

	// --- Stores & Services ---
	st := store.NewPostgresStore(dbPool)

	chatService := chat.NewService(st)
	offerEngine := offer.NewEngine(st)

	// --- WebSocket Hub ---
	hub := websocket.NewHub(chatService)
	go hub.Run()

	// --- Handlers ---
	authHandler := auth.NewHandler(st.Users())
	userHandler := user.NewHandler(st.Users())
	listingHandler := listing.NewHandler(st.Listings(), st.Users())
	chatHandler := chat.NewRestHandler(chatService, hub)
	offerHandler := offer.NewRestHandler(offerEngine, hub)
	wsHandler := websocket.NewWSHandler(hub)

	// --- Router Setup ---
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", middleware.AuthMiddleware(), authHandler.GetMe)
		}

		protected := apiV1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/users/:id", userHandler.GetUserByID)
			protected.PATCH("/users/me", userHandler.UpdateMe)

			protected.POST("/listings", listingHandler.CreateListing)
			protected.GET("/listings/mine", listingHandler.GetMyListings)
			protected.GET("/listings/:id", listingHandler.GetListingByID)

			protected.POST("/chats", chatHandler.StartChat)
			protected.GET("/chats", chatHandler.GetChats)
			protected.GET("/chats/:id", chatHandler.GetChatByID)

			protected.POST("/messages", chatHandler.PostMessage)
			protected.GET("/messages", chatHandler.GetMessagesByChatID)
			protected.POST("/messages/read", chatHandler.MarkMessagesRead)
			protected.GET("/messages/unread-count", chatHandler.GetUnreadCount)

			protected.POST("/offers", offerHandler.MakeOffer)
			protected.POST("/offers/:id/accept", offerHandler.AcceptOffer)
			protected.POST("/offers/:id/decline", offerHandler.DeclineOffer)
			protected.POST("/offers/:id/cancel", offerHandler.CancelOffer)
			protected.GET("/offers/active", offerHandler.GetActiveOffer)
			protected.GET("/offers", offerHandler.GetChatOffers)
		}
	}

	// WebSocket endpoint authenticates via ?token= because browsers cannot
	// set headers on WebSocket upgrade requests.
	router.GET("/ws", wsHandler.HandleWebSocketConnection)

	// --- Server Startup & Graceful Shutdown ---
	srv := &http.Server{
		Addr:    ":" + config.Cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", config.Cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
