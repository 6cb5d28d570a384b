package database

import (
	"log"

	"tienda-backend/internal/config"
	"tienda-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("No se pudo conectar a la base de datos: %v", err)
	}

	err = DB.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Product{},
		&models.Stock{},
		&models.StockTransfer{},
		&models.TransferItem{},
		&models.Shift{},
		&models.Sale{},
		&models.SaleItem{},
		&models.PaymentDetail{},
		&models.Settlement{},
		&models.FeatureFlag{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("Error en AutoMigrate: %v", err)
	}

	// Un solo turno abierto por usuario: índice único parcial.
	// AutoMigrate no sabe crear índices parciales, se aplica a mano.
	if err := DB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_shifts_usuario_abierto
		ON shifts (user_id) WHERE closed_at IS NULL
	`).Error; err != nil {
		log.Printf("No se pudo crear el índice de turno abierto único (¿ya existe?): %v", err)
	}

	seedFeatureFlags()

	log.Println("Conexión a la base de datos exitosa. Migración completada.")
}

// seedFeatureFlags: asegura que existan los flags conocidos.
func seedFeatureFlags() {
	flags := []models.FeatureFlag{
		{Key: models.FlagStockTransfers, Enabled: true, Description: "Traslados de mercadería entre sucursales"},
	}

	for _, f := range flags {
		var count int64
		DB.Model(&models.FeatureFlag{}).Where("key = ?", f.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&f).Error; err != nil {
				log.Printf("No se pudo crear el feature flag %s: %v", f.Key, err)
			} else {
				log.Printf("Feature flag %s creado (enabled=%v)", f.Key, f.Enabled)
			}
		}
	}
}
