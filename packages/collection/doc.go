// Package collection holds the request tree of a collection as shown in the sidebar.
//
// Tree is the local arena with folders and nested requests. Service applies create,
// rename, save and delete to the backend and reconciles the tree from the answers.
// Navigator keeps the editor pointed at a request that still exists.
package collection
