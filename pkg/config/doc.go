// Package config provides configuration for docarrow conversion runs.
//
// # Key Features
//
// - Config: one structure with Source, Output, Encoding and Observability sections
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from Default() and validation through Validate()
//
// # Usage
//
//	cfg, err := config.Load("docarrow.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A configuration that exports a Datastore kind to Parquet on S3:
//
//	name: users-export
//	source:
//	  type: datastore
//	  project: ${GCP_PROJECT}
//	  kind: User
//	  include_key: true
//	output:
//	  format: parquet
//	  compression: none
//	  destination:
//	    type: s3
//	    bucket: analytics
//	    prefix: users/
//	    region: us-east-1
//	encoding:
//	  separator: _
//	  batch_size: 5000
//
// Fields left out keep their values from Default(). The CLI layers flags and
// DOCARROW_* environment variables on top of the file through viper.
package config
