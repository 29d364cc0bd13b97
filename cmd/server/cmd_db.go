package main

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rl1809/harvest-market/internal/adapter/storage"
	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/core/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := storage.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Schema up to date (%s)\n", db.Dialect())
		return nil
	},
}

var seedOpts struct {
	farmers  int
	grocers  int
	products int
	seed     uint64
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake farmers, grocers and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := storage.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		faker := gofakeit.New(seedOpts.seed)
		catalog := service.NewCatalogService(db)

		for range seedOpts.farmers {
			farmer := storage.Profile{
				ID:          uuid.NewString(),
				Name:        faker.Name(),
				Email:       faker.Email(),
				PhoneNumber: faker.Phone(),
			}
			if err := db.SaveFarmer(ctx, farmer); err != nil {
				return err
			}

			for range seedOpts.products {
				_, err := catalog.CreateProduct(ctx, domain.Farmer{ID: farmer.ID}, service.NewProduct{
					Name:              faker.Vegetable(),
					Description:       faker.ProductDescription(),
					PricePerUnit:      int64(faker.Number(10, 5000)),
					QuantityAvailable: faker.Number(0, 500),
				})
				if err != nil {
					return err
				}
			}
			fmt.Printf("farmer  %s  %s\n", farmer.ID, farmer.Name)
		}

		for range seedOpts.grocers {
			grocer := storage.Profile{
				ID:          uuid.NewString(),
				Name:        faker.Name(),
				StoreName:   faker.Company(),
				Email:       faker.Email(),
				PhoneNumber: faker.Phone(),
			}
			if err := db.SaveGrocer(ctx, grocer); err != nil {
				return err
			}
			fmt.Printf("grocer  %s  %s (%s)\n", grocer.ID, grocer.Name, grocer.StoreName)
		}

		fmt.Printf("Seeded %d farmers, %d products, %d grocers\n",
			seedOpts.farmers, seedOpts.farmers*seedOpts.products, seedOpts.grocers)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.farmers, "farmers", 3, "number of farmers")
	seedCmd.Flags().IntVar(&seedOpts.products, "products", 4, "products per farmer")
	seedCmd.Flags().IntVar(&seedOpts.grocers, "grocers", 2, "number of grocers")
	seedCmd.Flags().Uint64Var(&seedOpts.seed, "seed", 0, "faker seed, 0 for random")
}
