package main // Entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/config"
	"github.com/njoroge/inventory-allocation/internal/database"
	"github.com/njoroge/inventory-allocation/internal/handler"
	"github.com/njoroge/inventory-allocation/internal/middleware"
	"github.com/njoroge/inventory-allocation/internal/queue"
	"github.com/njoroge/inventory-allocation/internal/repository"
	"github.com/njoroge/inventory-allocation/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the response cache and the rate limiter; nil client
	// degrades both to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	items := repository.NewItemRepo(db)
	categories := repository.NewCategoryRepo(db)
	counties := repository.NewCountyRepo(db)
	models := repository.NewItemModelRepo(db)
	departments := repository.NewDepartmentRepo(db)
	allocations := repository.NewAllocationRepo(db)
	returns := repository.NewReturnRequestRepo(db)
	repairs := repository.NewRepairRequestRepo(db)

	// Handlers
	authH := handler.NewAuthHandler(cfg, users, tokens)
	userH := handler.NewUserHandler(cfg, users)
	itemH := handler.NewItemHandler(items)
	categoryH := handler.NewReferenceHandler(categories, "category")
	countyH := handler.NewReferenceHandler(counties, "county")
	modelH := handler.NewReferenceHandler(models, "model")
	departmentH := handler.NewReferenceHandler(departments, "department")
	allocationH := handler.NewAllocationHandler(cfg, allocations)
	returnH := handler.NewReturnRequestHandler(returns)
	repairH := handler.NewRepairRequestHandler(repairs)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, router.PublicReferences{
		Categories: categoryH,
		Counties:   countyH,
		Models:     modelH,
	}, config.LoadCacheConfig(), rdb)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterMember(e, router.MemberHandlers{
		Departments:    departmentH,
		Items:          itemH,
		Allocations:    allocationH,
		ReturnRequests: returnH,
		RepairRequests: repairH,
	}, cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{
		Users:          userH,
		Items:          itemH,
		Categories:     categoryH,
		Counties:       countyH,
		Models:         modelH,
		Departments:    departmentH,
		Allocations:    allocationH,
		ReturnRequests: returnH,
		RepairRequests: repairH,
	}, cfg.JWTSecret)

	// Background consumer writes lifecycle events to logs/allocation.log.
	go func() {
		if err := queue.StartAllocationConsumer(); err != nil {
			log.Printf("allocation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
