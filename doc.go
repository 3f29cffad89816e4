// Package tempbin is a client for uploading files to an S3-compatible object
// store and handing out time-limited download links. All request signing
// (AWS Signature Version 4) happens locally, so no SDK and no credential
// exchange service is involved.
//
// Small objects go up as one signed PUT; objects above the configured
// threshold use the multipart protocol with a bounded number of parts in
// flight. Failed multipart uploads are aborted so no orphaned parts accrue
// storage charges.
//
// Basic usage:
//
//	client, err := tempbin.New(tbtypes.Credentials{
//		AccountID:       "acct",
//		AccessKeyID:     "key",
//		SecretAccessKey: "secret",
//		Bucket:          "files",
//	})
//	if err != nil {
//		return err
//	}
//	res, err := client.Upload(ctx, "report.pdf", data)
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.URL) // valid for 10 minutes
package tempbin
