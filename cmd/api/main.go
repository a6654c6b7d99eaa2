package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/config"
	"classattend/internal/httpmiddleware"
	"classattend/internal/queue"
	"classattend/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		// The store is the only fatal dependency.
		log.Fatalf("db not reachable: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx, db.Client); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}
	if err := store.Seed(ctx, db.Client, uuid.NewString); err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, store.Key("marks"))
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(repo, cfg.DefaultQRValidity)

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisLimiter(redisClient.Client, cfg.RateLimitPerMin, store.Key("rl:"))
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/students/login", func(c *gin.Context) {
		var req struct {
			RollNumber string `json:"roll_number" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		st, err := repo.GetStudent(c.Request.Context(), req.RollNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if st == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid roll number"})
			return
		}
		token, exp, err := auth.Issue(st.RollNumber, auth.RoleStudent, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"expires_at":   exp.Unix(),
			"roll_number":  st.RollNumber,
		})
	})

	r.POST("/v1/teachers/login", func(c *gin.Context) {
		var req struct {
			CourseCode string `json:"course_code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		course, err := repo.GetCourse(c.Request.Context(), req.CourseCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if course == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid course"})
			return
		}
		token, exp, err := auth.Issue(course.Code, auth.RoleTeacher, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"expires_at":   exp.Unix(),
			"course_code":  course.Code,
		})
	})

	authGroup := r.Group("/v1", auth.RequireLogin(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.GET("/students/:roll/attendance", func(c *gin.Context) {
		report, err := svc.StudentReport(c.Request.Context(), c.Param("roll"))
		if err != nil {
			if errors.Is(err, attendance.ErrStudentNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, report)
	})

	authGroup.POST("/students/:roll/attendance", func(c *gin.Context) {
		var req struct {
			QRToken string `json:"qr_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claimsAny, _ := c.Get("claims")
		claims, _ := claimsAny.(auth.Claims)
		if claims.Role == auth.RoleStudent && claims.Subject != c.Param("roll") {
			c.JSON(http.StatusForbidden, gin.H{"error": "roll number mismatch"})
			return
		}

		mark, err := svc.SubmitQR(c.Request.Context(), c.Param("roll"), req.QRToken, c.ClientIP())
		if err != nil {
			if msg, known := submitMessage(err); known {
				c.JSON(http.StatusOK, gin.H{"ok": false, "message": msg})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}

		if err := q.Publish(c.Request.Context(), queue.Message{
			Source:     "qr",
			RollNumber: mark.RollNumber,
			CourseCode: mark.CourseCode,
			Date:       mark.Date.Format("2006-01-02"),
			At:         time.Now().UTC(),
		}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Attendance Marked!"})
	})

	authGroup.POST("/courses/:code/qr", func(c *gin.Context) {
		var req struct {
			AttendanceDate  string `json:"attendance_date" binding:"required"`
			ValiditySeconds int    `json:"validity_seconds"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date, err := time.Parse("2006-01-02", req.AttendanceDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "attendance_date must be YYYY-MM-DD"})
			return
		}
		validity := time.Duration(req.ValiditySeconds) * time.Second
		info, err := svc.IssueSession(c.Request.Context(), c.Param("code"), date, validity, c.ClientIP())
		if err != nil {
			if errors.Is(err, attendance.ErrCourseNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		png, _, err := svc.SessionImage(c.Request.Context(), info.CourseCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"course_code": info.CourseCode,
			"date":        info.Date.Format("2006-01-02"),
			"expiry":      info.Expiry.Unix(),
			"qr_png":      base64.StdEncoding.EncodeToString(png),
		})
	})

	authGroup.GET("/courses/:code/qr", func(c *gin.Context) {
		png, course, err := svc.SessionImage(c.Request.Context(), c.Param("code"))
		if err != nil {
			if errors.Is(err, attendance.ErrCourseNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}

		resp := gin.H{"course_code": course.Code, "active": png != nil}
		if png != nil {
			resp["qr_png"] = base64.StdEncoding.EncodeToString(png)
		}
		if course.QRExpiry != nil {
			resp["expiry"] = course.QRExpiry.Unix()
		}
		if course.QRDate != nil {
			resp["date"] = course.QRDate.Format("2006-01-02")
			roster, err := svc.CourseDayRoster(c.Request.Context(), course.Code, *course.QRDate)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
				return
			}
			resp["roster"] = roster
		}
		c.JSON(http.StatusOK, resp)
	})

	authGroup.GET("/courses/:code/dashboard", func(c *gin.Context) {
		entries, err := svc.CourseDashboard(c.Request.Context(), c.Param("code"))
		if err != nil {
			if errors.Is(err, attendance.ErrCourseNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"course_code": c.Param("code"), "roster": entries})
	})

	authGroup.GET("/courses/:code/roster", func(c *gin.Context) {
		date, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		entries, err := svc.CourseDayRoster(c.Request.Context(), c.Param("code"), date)
		if err != nil {
			if errors.Is(err, attendance.ErrCourseNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"course_code": c.Param("code"),
			"date":        date.Format("2006-01-02"),
			"roster":      entries,
		})
	})

	authGroup.PUT("/courses/:code/roster", func(c *gin.Context) {
		var req struct {
			AttendanceDate string   `json:"attendance_date" binding:"required"`
			PresentRolls   []string `json:"present_rolls"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date, err := time.Parse("2006-01-02", req.AttendanceDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "attendance_date must be YYYY-MM-DD"})
			return
		}
		marks, err := svc.SetDayRoster(c.Request.Context(), c.Param("code"), date, req.PresentRolls)
		if err != nil {
			if errors.Is(err, attendance.ErrCourseNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}

		for _, mark := range marks {
			if err := q.Publish(c.Request.Context(), queue.Message{
				Source:     "manual",
				RollNumber: mark.RollNumber,
				CourseCode: mark.CourseCode,
				Date:       mark.Date.Format("2006-01-02"),
				At:         time.Now().UTC(),
			}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"course_code": c.Param("code"),
			"date":        date.Format("2006-01-02"),
			"present":     len(marks),
		})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// submitMessage maps the submission taxonomy to student-facing messages.
// Unknown errors are not mapped; the caller treats them as server errors.
func submitMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, attendance.ErrStudentNotFound):
		return "Student not found", true
	case errors.Is(err, attendance.ErrInvalidToken):
		return "Invalid QR Code", true
	case errors.Is(err, attendance.ErrTokenExpired):
		return "QR expired", true
	case errors.Is(err, attendance.ErrNetworkMismatch):
		return "Not on same network", true
	case errors.Is(err, attendance.ErrCourseNotFound):
		return "Invalid QR Code", true
	case errors.Is(err, attendance.ErrProcessing):
		return "Error processing QR", true
	}
	return "", false
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
