package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"

	productcontroller "github.com/junaidrashid-git/floreria-api/controllers/product"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Import or export the product catalog as an Excel workbook",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Create or update products from a workbook",
	Long: `Reads the first sheet of the workbook. Columns: ID, Name, Description, Price,
Stock, Image, CategoryIDs. Rows with an existing ID update that product; rows
without one create a new product.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		xlFile, err := xlsx.OpenFile(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		result, err := productcontroller.ImportWorkbook(cmd.Context(), db, xlFile)
		if err != nil {
			return err
		}
		logger.Info("catalog imported",
			zap.String("file", args[0]),
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped))
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d\n", result.Created, result.Updated, result.Skipped)
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write every product to a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		file, err := productcontroller.BuildWorkbook(cmd.Context(), db)
		if err != nil {
			return err
		}
		if err := file.Save(args[0]); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		logger.Info("catalog exported", zap.String("file", args[0]))
		return nil
	},
}
