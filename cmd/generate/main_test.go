package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mattxander12/forex-trader/internal/config"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.T().Chdir(suite.tempDir)
}

func (suite *GenerateCmdTestSuite) TestMainGeneratesFiles() {
	main()

	schemaPath := filepath.Join(suite.tempDir, "config", schemaName)
	suite.True(fileExists(schemaPath), "schema file should exist")

	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal(content, &schema))
	suite.Contains(schema, "properties")

	samplePath := filepath.Join(suite.tempDir, "config", sampleConfigName)
	sample, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Contains(string(sample), getSchemaReference(schemaName))
}

func (suite *GenerateCmdTestSuite) TestSampleConfigLoadsBack() {
	samplePath := filepath.Join(suite.tempDir, "sample.yaml")
	suite.Require().NoError(generateSampleConfig(config.Default(), samplePath, schemaName))

	cfg, err := config.Load(samplePath)
	suite.Require().NoError(err)
	suite.Equal(config.Default(), cfg)
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	samplePath := filepath.Join(suite.tempDir, "existing.yaml")
	suite.Require().NoError(os.WriteFile(samplePath, []byte("existing content"), 0o644))

	suite.Require().NoError(generateSampleConfig(config.Default(), samplePath, schemaName))

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("existing content", string(content))
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFileInvalidPath() {
	blocker := filepath.Join(suite.tempDir, "file")
	suite.Require().NoError(os.WriteFile(blocker, nil, 0o644))

	err := generateSchemaFile(filepath.Join(blocker, "schema.json"))
	suite.Error(err)
	suite.Contains(err.Error(), "failed to")
}

func (suite *GenerateCmdTestSuite) TestValidatePaths() {
	suite.NoError(validatePaths("/some/path/schema.json", "/some/path/config.yaml"))

	err := validatePaths("", "/some/path/config.yaml")
	suite.ErrorContains(err, "schema path cannot be empty")

	err = validatePaths("/some/path/schema.json", "")
	suite.ErrorContains(err, "sample config path cannot be empty")
}

func (suite *GenerateCmdTestSuite) TestValidateSchemaName() {
	suite.NoError(validateSchemaName("schema.json"))
	suite.ErrorContains(validateSchemaName(""), "schema name cannot be empty")
	suite.ErrorContains(validateSchemaName("schema.txt"), "must have .json extension")
}

func (suite *GenerateCmdTestSuite) TestGetSchemaReference() {
	suite.Equal("# yaml-language-server: $schema=test-schema.json\n", getSchemaReference("test-schema.json"))
	suite.Equal("# yaml-language-server: $schema=\n", getSchemaReference(""))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

func TestGenerateCmdSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}
